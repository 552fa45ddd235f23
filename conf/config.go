/*
 * Copyright 2019 The QuorumNet Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package conf holds the YAML configuration of the ledger storage engine.
package conf

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// DefaultPoolSize is used when PoolSize is unset. One staging writer plus a
// handful of concurrent readers.
const DefaultPoolSize = 10

// Config is the process configuration of the storage engine.
type Config struct {
	// BlockStoreDir is the directory of the append-only block store.
	BlockStoreDir string `yaml:"BlockStoreDir"`
	// DSN is the backend connection string, either "file:…" (sqlite) or
	// postgres keyword form.
	DSN string `yaml:"DSN"`
	// PoolSize is the fixed backend session count.
	PoolSize int `yaml:"PoolSize"`
	// LogLevel is a logrus level string; empty means info.
	LogLevel string `yaml:"LogLevel"`
	// LogFile enables size-rotated file logging when non-empty.
	LogFile       string `yaml:"LogFile"`
	LogMaxSizeMB  int    `yaml:"LogMaxSizeMB"`
	LogMaxAgeDays int    `yaml:"LogMaxAgeDays"`
}

// GConf is the global config pointer, set by LoadConfig.
var GConf *Config

// LoadConfig loads config from the configPath yaml file.
func LoadConfig(configPath string) (config *Config, err error) {
	configBytes, err := ioutil.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "read config file failed")
	}
	config = &Config{}
	if err = yaml.Unmarshal(configBytes, config); err != nil {
		return nil, errors.Wrap(err, "unmarshal config file failed")
	}
	if config.BlockStoreDir == "" {
		return nil, errors.New("config: BlockStoreDir is required")
	}
	if config.DSN == "" {
		return nil, errors.New("config: DSN is required")
	}
	if config.PoolSize <= 0 {
		config.PoolSize = DefaultPoolSize
	}
	return config, nil
}
