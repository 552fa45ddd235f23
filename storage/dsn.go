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

// Package storage provides the relational backend plumbing of the ledger
// engine: connection string handling, backend administration and the fixed
// size session pool the world state view is served from.
//
// Two backends are supported. A sqlite connection string of the form
// "file:path?param=value" keeps the whole world state in a single database
// file with no discrete database identity. A postgres connection string of
// the keyword form "host=… dbname=… user=…" addresses a named database on a
// session-oriented server.
package storage

import (
	"fmt"
	"sort"
	"strings"
)

// Driver names for database/sql registration.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DSN represents a parsed backend connection string.
type DSN struct {
	driver   string
	filename string            // sqlite database file
	params   map[string]string // sqlite query params or postgres keywords
}

// NewDSN parses the given string and returns a DSN. Strings starting with
// "file:" are sqlite connection strings; keyword/value strings are postgres
// connection strings.
func NewDSN(s string) (*DSN, error) {
	if strings.HasPrefix(s, "file:") {
		return parseSQLiteDSN(s)
	}
	if strings.Contains(s, "=") {
		return parsePostgresDSN(s)
	}
	return nil, fmt.Errorf("unrecognized connection string: %s", s)
}

func parseSQLiteDSN(s string) (*DSN, error) {
	parts := strings.SplitN(s, "?", 2)

	dsn := &DSN{
		driver:   DriverSQLite,
		filename: strings.TrimPrefix(parts[0], "file:"),
		params:   make(map[string]string),
	}

	if len(parts) < 2 {
		return dsn, nil
	}

	for _, v := range strings.Split(parts[1], "&") {
		param := strings.SplitN(v, "=", 2)

		if len(param) != 2 {
			return nil, fmt.Errorf("unrecognized parameter: %s", v)
		}

		dsn.params[param[0]] = param[1]
	}

	return dsn, nil
}

func parsePostgresDSN(s string) (*DSN, error) {
	dsn := &DSN{
		driver: DriverPostgres,
		params: make(map[string]string),
	}

	for _, v := range strings.Fields(s) {
		param := strings.SplitN(v, "=", 2)

		if len(param) != 2 {
			return nil, fmt.Errorf("unrecognized parameter: %s", v)
		}

		dsn.params[param[0]] = param[1]
	}

	return dsn, nil
}

// Driver returns the database/sql driver name to open this DSN with.
func (dsn *DSN) Driver() string { return dsn.driver }

// Format formats DSN to a connection string accepted by its driver.
func (dsn *DSN) Format() string {
	switch dsn.driver {
	case DriverSQLite:
		if len(dsn.params) == 0 {
			return fmt.Sprintf("file:%s", dsn.filename)
		}
		params := make([]string, 0, len(dsn.params))
		for k, v := range dsn.params {
			params = append(params, strings.Join([]string{k, v}, "="))
		}
		sort.Strings(params)
		return fmt.Sprintf("file:%s?%s", dsn.filename, strings.Join(params, "&"))
	case DriverPostgres:
		params := make([]string, 0, len(dsn.params))
		for k, v := range dsn.params {
			params = append(params, strings.Join([]string{k, v}, "="))
		}
		sort.Strings(params)
		return strings.Join(params, " ")
	}
	return ""
}

// Database returns the discrete database name addressed by this DSN. The ok
// result is false for sqlite, which has no per-database identity beyond its
// file.
func (dsn *DSN) Database() (name string, ok bool) {
	if dsn.driver != DriverPostgres {
		return "", false
	}
	name, ok = dsn.params["dbname"]
	return
}

// WithoutDatabase returns a DSN addressing the backend's maintenance scope
// rather than the target database, for administrative statements like
// CREATE DATABASE. Calling it on a sqlite DSN returns a plain clone.
func (dsn *DSN) WithoutDatabase() *DSN {
	clone := dsn.Clone()
	if clone.driver == DriverPostgres {
		clone.params["dbname"] = "postgres"
	}
	return clone
}

// Filename returns the sqlite database file name of DSN.
func (dsn *DSN) Filename() string { return dsn.filename }

// SetFilename sets the sqlite database file name of DSN.
func (dsn *DSN) SetFilename(fn string) { dsn.filename = fn }

// AddParam adds key:value pair DSN parameters. An empty value removes the
// key.
func (dsn *DSN) AddParam(key, value string) {
	if dsn.params == nil {
		dsn.params = make(map[string]string)
	}

	if value == "" {
		delete(dsn.params, key)
	} else {
		dsn.params[key] = value
	}
}

// GetParam gets the value of a DSN parameter.
func (dsn *DSN) GetParam(key string) (value string, ok bool) {
	value, ok = dsn.params[key]
	return
}

// Clone returns a copy of current dsn.
func (dsn *DSN) Clone() (copy *DSN) {
	copy = &DSN{}
	copy.driver = dsn.driver
	copy.filename = dsn.filename
	copy.params = make(map[string]string, len(dsn.params))

	for k, v := range dsn.params {
		copy.params[k] = v
	}

	return
}
