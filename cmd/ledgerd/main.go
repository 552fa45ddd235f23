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

// Command ledgerd boots the ledger storage engine from a YAML config, seeds
// a genesis block on an empty chain and then waits for a shutdown signal
// while echoing every committed block to the log.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quorumnet/ledgercore/conf"
	"github.com/quorumnet/ledgercore/crypto/hash"
	"github.com/quorumnet/ledgercore/ledger"
	"github.com/quorumnet/ledgercore/types"
	"github.com/quorumnet/ledgercore/utils/log"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "./config.yaml", "Config file path")
}

func main() {
	flag.Parse()

	cfg, err := conf.LoadConfig(configFile)
	if err != nil {
		log.WithError(err).Fatal("load config failed")
	}
	conf.GConf = cfg

	log.SetStringLevel(cfg.LogLevel, logrus.InfoLevel)
	if cfg.LogFile != "" {
		log.SetFileOutput(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxAgeDays)
	}

	st, err := ledger.NewStorage(cfg.BlockStoreDir, cfg.DSN, cfg.PoolSize, types.ModelFactory{})
	if err != nil {
		log.WithError(err).Fatal("create storage failed")
	}
	defer st.Close()

	cancel := st.OnCommit(func(b *types.Block) {
		log.WithFields(log.Fields{
			"height": b.Height(),
			"hash":   b.Hash().String(),
		}).Info("block committed")
	})
	defer cancel()

	bq, err := st.GetBlockQuery()
	if err != nil {
		log.WithError(err).Fatal("open block query failed")
	}
	height := bq.Height()
	bq.Close()

	if height == 0 {
		genesis := types.NewBlock(types.GenesisHeight, hash.ZeroHash, time.Now(), nil)
		if !st.InsertBlock(genesis) {
			log.Fatal("seed genesis block failed")
		}
	} else {
		log.WithField("height", height).Info("chain already initialized")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")
}
