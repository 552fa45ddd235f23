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

package conf

import (
	"io/ioutil"
	"os"
	"path"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func writeConfig(t *testing.T, dir, content string) string {
	p := path.Join(dir, "config.yaml")
	if err := ioutil.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadConfig(t *testing.T) {
	Convey("Given config files on disk", t, func() {
		dir, err := ioutil.TempDir("", "conf_test")
		So(err, ShouldBeNil)
		Reset(func() { os.RemoveAll(dir) })

		Convey("A complete config loads with its values intact", func() {
			p := writeConfig(t, dir, `
BlockStoreDir: /var/lib/ledger/blocks
DSN: "host=localhost dbname=ledger user=ledger"
PoolSize: 4
LogLevel: debug
LogFile: /var/log/ledger/engine.log
LogMaxSizeMB: 100
LogMaxAgeDays: 7
`)
			config, err := LoadConfig(p)
			So(err, ShouldBeNil)
			So(config.BlockStoreDir, ShouldEqual, "/var/lib/ledger/blocks")
			So(config.DSN, ShouldEqual, "host=localhost dbname=ledger user=ledger")
			So(config.PoolSize, ShouldEqual, 4)
			So(config.LogLevel, ShouldEqual, "debug")
			So(config.LogFile, ShouldEqual, "/var/log/ledger/engine.log")
		})

		Convey("An unset pool size falls back to the default", func() {
			p := writeConfig(t, dir, `
BlockStoreDir: ./blocks
DSN: "file:./wsv.db"
`)
			config, err := LoadConfig(p)
			So(err, ShouldBeNil)
			So(config.PoolSize, ShouldEqual, DefaultPoolSize)
		})

		Convey("Missing required fields are rejected", func() {
			p := writeConfig(t, dir, "DSN: \"file:./wsv.db\"\n")
			_, err := LoadConfig(p)
			So(err, ShouldNotBeNil)

			p = writeConfig(t, dir, "BlockStoreDir: ./blocks\n")
			_, err = LoadConfig(p)
			So(err, ShouldNotBeNil)
		})

		Convey("A missing file is an error", func() {
			_, err := LoadConfig(path.Join(dir, "nope.yaml"))
			So(err, ShouldNotBeNil)
		})

		Convey("Malformed yaml is an error", func() {
			p := writeConfig(t, dir, "\t{unbalanced")
			_, err := LoadConfig(p)
			So(err, ShouldNotBeNil)
		})
	})
}
