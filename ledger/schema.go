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

package ledger

// World state view schema. The DDL below sticks to types both supported
// backends accept. Permission bitsets travel as text columns; their width is
// policed by the permission collaborator, not the schema.

var initDDL = [...]string{
	`CREATE TABLE IF NOT EXISTS role (
		role_id character varying(32),
		PRIMARY KEY (role_id)
	)`,
	`CREATE TABLE IF NOT EXISTS domain (
		domain_id character varying(255),
		default_role character varying(32) NOT NULL REFERENCES role(role_id),
		PRIMARY KEY (domain_id)
	)`,
	`CREATE TABLE IF NOT EXISTS signatory (
		public_key varchar NOT NULL,
		PRIMARY KEY (public_key)
	)`,
	`CREATE TABLE IF NOT EXISTS account (
		account_id character varying(288),
		domain_id character varying(255) NOT NULL REFERENCES domain(domain_id),
		quorum int NOT NULL,
		data text,
		PRIMARY KEY (account_id)
	)`,
	`CREATE TABLE IF NOT EXISTS account_has_signatory (
		account_id character varying(288) NOT NULL REFERENCES account(account_id),
		public_key varchar NOT NULL REFERENCES signatory(public_key),
		PRIMARY KEY (account_id, public_key)
	)`,
	`CREATE TABLE IF NOT EXISTS peer (
		public_key varchar NOT NULL,
		address character varying(261) NOT NULL UNIQUE,
		PRIMARY KEY (public_key)
	)`,
	`CREATE TABLE IF NOT EXISTS asset (
		asset_id character varying(288),
		domain_id character varying(255) NOT NULL REFERENCES domain(domain_id),
		precision int NOT NULL,
		PRIMARY KEY (asset_id)
	)`,
	`CREATE TABLE IF NOT EXISTS account_has_asset (
		account_id character varying(288) NOT NULL REFERENCES account(account_id),
		asset_id character varying(288) NOT NULL REFERENCES asset(asset_id),
		amount decimal NOT NULL,
		PRIMARY KEY (account_id, asset_id)
	)`,
	`CREATE TABLE IF NOT EXISTS role_has_permissions (
		role_id character varying(32) NOT NULL REFERENCES role(role_id),
		permission text NOT NULL,
		PRIMARY KEY (role_id)
	)`,
	`CREATE TABLE IF NOT EXISTS account_has_roles (
		account_id character varying(288) NOT NULL REFERENCES account(account_id),
		role_id character varying(32) NOT NULL REFERENCES role(role_id),
		PRIMARY KEY (account_id, role_id)
	)`,
	`CREATE TABLE IF NOT EXISTS account_has_grantable_permissions (
		permittee_account_id character varying(288) NOT NULL REFERENCES account(account_id),
		account_id character varying(288) NOT NULL REFERENCES account(account_id),
		permission text NOT NULL,
		PRIMARY KEY (permittee_account_id, account_id)
	)`,
	`CREATE TABLE IF NOT EXISTS height_by_hash (
		hash varchar,
		height text
	)`,
	`CREATE TABLE IF NOT EXISTS height_by_account_set (
		account_id text,
		height text
	)`,
	`CREATE TABLE IF NOT EXISTS index_by_creator_height (
		creator_id text,
		height text,
		index_in_block text
	)`,
	`CREATE TABLE IF NOT EXISTS index_by_id_height_asset (
		id text,
		height text,
		asset_id text,
		index_in_block text
	)`,
}

// wsvTables lists every schema table, children before parents, so both the
// reset DELETEs and the drop DDL can run in slice order without tripping
// foreign keys.
var wsvTables = [...]string{
	"account_has_signatory",
	"account_has_asset",
	"role_has_permissions",
	"account_has_roles",
	"account_has_grantable_permissions",
	"account",
	"asset",
	"domain",
	"signatory",
	"peer",
	"role",
	"height_by_hash",
	"height_by_account_set",
	"index_by_creator_height",
	"index_by_id_height_asset",
}

func resetDDL() []string {
	stmts := make([]string, 0, len(wsvTables))
	for _, t := range wsvTables {
		stmts = append(stmts, "DELETE FROM "+t)
	}
	return stmts
}

func dropDDL() []string {
	stmts := make([]string, 0, len(wsvTables))
	for _, t := range wsvTables {
		stmts = append(stmts, "DROP TABLE IF EXISTS "+t)
	}
	return stmts
}
