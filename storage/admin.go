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

package storage

import (
	"database/sql"
	"os"

	// Register lib/pq postgres engine.
	_ "github.com/lib/pq"
	// Register go-sqlite3 engine.
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// CreateDatabaseIfNotExist ensures the database addressed by dsn exists. For
// postgres it checks pg_catalog by name before issuing CREATE DATABASE, so
// repeated calls are idempotent. For sqlite the database file springs into
// existence on first open and nothing is done. The created result reports
// whether a database was actually created.
func CreateDatabaseIfNotExist(dsn *DSN) (created bool, err error) {
	dbname, ok := dsn.Database()
	if !ok {
		return false, nil
	}

	admin, err := sql.Open(dsn.Driver(), dsn.WithoutDatabase().Format())
	if err != nil {
		return false, errors.Wrap(err, "open maintenance connection")
	}
	defer admin.Close()

	var count int
	err = admin.QueryRow(
		"SELECT count(datname) FROM pg_catalog.pg_database WHERE datname = $1", dbname,
	).Scan(&count)
	if err != nil {
		return false, errors.Wrapf(err, "connection to backend broken")
	}
	if count > 0 {
		return false, nil
	}

	// Database names cannot be bound parameters.
	if _, err = admin.Exec("CREATE DATABASE " + quoteIdent(dbname)); err != nil {
		return false, errors.Wrapf(err, "create database %s", dbname)
	}
	return true, nil
}

// DropDatabase destroys the database addressed by dsn. For postgres it first
// terminates every other session bound to the database, then drops it. For
// sqlite it removes the database file together with the WAL side files.
func DropDatabase(dsn *DSN) error {
	dbname, ok := dsn.Database()
	if !ok {
		if fn := dsn.Filename(); fn != "" && fn != ":memory:" {
			for _, f := range []string{fn, fn + "-wal", fn + "-shm"} {
				if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
					return errors.Wrapf(err, "remove database file %s", f)
				}
			}
		}
		return nil
	}

	admin, err := sql.Open(dsn.Driver(), dsn.WithoutDatabase().Format())
	if err != nil {
		return errors.Wrap(err, "open maintenance connection")
	}
	defer admin.Close()

	// Kill sessions still bound to the target database, ours excluded.
	_, err = admin.Exec(`
SELECT pg_terminate_backend(pg_stat_activity.pid)
FROM pg_stat_activity
WHERE pg_stat_activity.datname = $1
  AND pid <> pg_backend_pid()`, dbname)
	if err != nil {
		return errors.Wrapf(err, "terminate sessions of %s", dbname)
	}

	if _, err = admin.Exec("DROP DATABASE " + quoteIdent(dbname)); err != nil {
		return errors.Wrapf(err, "drop database %s", dbname)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}
