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

package types

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/quorumnet/ledgercore/crypto/hash"
)

func testTxs() []Transaction {
	return []Transaction{
		{ID: "tx-1", Creator: "alice@core", Payload: []byte(`{"cmd":"create_account"}`)},
		{ID: "tx-2", Creator: "bob@core", Payload: []byte(`{"cmd":"add_asset"}`)},
	}
}

func TestBlock(t *testing.T) {
	Convey("Given a sealed block", t, func() {
		ts := time.Date(2019, 7, 1, 12, 0, 0, 0, time.UTC)
		b := NewBlock(GenesisHeight, hash.ZeroHash, ts, testTxs())

		Convey("Its identity fields are fixed at construction", func() {
			So(b.Height(), ShouldEqual, GenesisHeight)
			So(b.ParentHash().IsZero(), ShouldBeTrue)
			So(b.Hash().IsZero(), ShouldBeFalse)
		})

		Convey("Hashing is deterministic over content", func() {
			same := NewBlock(GenesisHeight, hash.ZeroHash, ts, testTxs())
			So(same.Hash(), ShouldResemble, b.Hash())

			child := NewBlock(2, b.Hash(), ts, testTxs())
			So(child.Hash(), ShouldNotResemble, b.Hash())
			So(child.ParentHash(), ShouldResemble, b.Hash())
		})

		Convey("Serialization round-trips and verifies the sealed hash", func() {
			raw, err := b.Serialize()
			So(err, ShouldBeNil)

			decoded, err := DeserializeBlock(raw)
			So(err, ShouldBeNil)
			So(decoded.Hash(), ShouldResemble, b.Hash())
			So(decoded.Height(), ShouldEqual, b.Height())
			So(len(decoded.Transactions), ShouldEqual, 2)
			So(decoded.Transactions[0].ID, ShouldEqual, "tx-1")
		})

		Convey("Tampered payloads are rejected on decode", func() {
			raw, err := b.Serialize()
			So(err, ShouldBeNil)
			tampered := []byte(string(raw))
			for i := 0; i+4 <= len(tampered); i++ {
				// Flip a byte inside the transaction id.
				if string(tampered[i:i+4]) == "tx-1" {
					tampered[i] = 'z'
					break
				}
			}
			_, err = DeserializeBlock(tampered)
			So(err, ShouldNotBeNil)
		})

		Convey("Garbage input fails to decode", func() {
			_, err := DeserializeBlock([]byte("not a block"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestModelFactory(t *testing.T) {
	Convey("Given the default object factory", t, func() {
		f := ModelFactory{}

		Convey("Valid rows materialize", func() {
			acc, err := f.NewAccount("alice@core", "core", 1, `{"k":"v"}`)
			So(err, ShouldBeNil)
			So(acc.AccountID, ShouldEqual, "alice@core")

			peer, err := f.NewPeer("pubkey", "10.0.0.1:10001")
			So(err, ShouldBeNil)
			So(peer.Address, ShouldEqual, "10.0.0.1:10001")

			asset, err := f.NewAsset("coin#core", "core", 2)
			So(err, ShouldBeNil)
			So(asset.Precision, ShouldEqual, 2)

			role, err := f.NewRole("admin")
			So(err, ShouldBeNil)
			So(role.RoleID, ShouldEqual, "admin")

			dom, err := f.NewDomain("core", "admin")
			So(err, ShouldBeNil)
			So(dom.DefaultRole, ShouldEqual, "admin")

			bal, err := f.NewAccountAsset("alice@core", "coin#core", "10.50")
			So(err, ShouldBeNil)
			So(bal.Amount, ShouldEqual, "10.50")
		})

		Convey("Empty identities are rejected", func() {
			_, err := f.NewAccount("", "core", 1, "")
			So(err, ShouldNotBeNil)
			_, err = f.NewPeer("", "addr")
			So(err, ShouldNotBeNil)
			_, err = f.NewRole("")
			So(err, ShouldNotBeNil)
			_, err = f.NewDomain("", "r")
			So(err, ShouldNotBeNil)
			_, err = f.NewAccountAsset("a", "", "1")
			So(err, ShouldNotBeNil)
		})

		Convey("Negative precision is rejected", func() {
			_, err := f.NewAsset("coin#core", "core", -1)
			So(err, ShouldNotBeNil)
		})
	})
}
