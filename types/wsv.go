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

import "github.com/pkg/errors"

// Account is the world state view of a ledger account.
type Account struct {
	AccountID string
	DomainID  string
	Quorum    uint32
	Data      string
}

// Peer is a network participant registered in the world state view.
type Peer struct {
	PublicKey string
	Address   string
}

// Asset describes a transferable asset type.
type Asset struct {
	AssetID   string
	DomainID  string
	Precision int
}

// Role names a permission role.
type Role struct {
	RoleID string
}

// Domain groups accounts and assets under a default role.
type Domain struct {
	DomainID    string
	DefaultRole string
}

// AccountAsset is the balance of one asset held by one account. The amount is
// kept in its decimal text form to avoid precision loss.
type AccountAsset struct {
	AccountID string
	AssetID   string
	Amount    string
}

// ObjectFactory materializes world state view read models from raw relational
// rows. Query services hold a factory but know nothing about its validation
// rules.
type ObjectFactory interface {
	NewAccount(accountID, domainID string, quorum uint32, data string) (*Account, error)
	NewPeer(publicKey, address string) (*Peer, error)
	NewAsset(assetID, domainID string, precision int) (*Asset, error)
	NewRole(roleID string) (*Role, error)
	NewDomain(domainID, defaultRole string) (*Domain, error)
	NewAccountAsset(accountID, assetID, amount string) (*AccountAsset, error)
}

// ModelFactory is the default ObjectFactory. It rejects rows with empty
// identity columns and passes everything else through untouched.
type ModelFactory struct{}

var _ ObjectFactory = ModelFactory{}

// NewAccount implements ObjectFactory.
func (ModelFactory) NewAccount(accountID, domainID string, quorum uint32, data string) (*Account, error) {
	if accountID == "" {
		return nil, errors.New("empty account id")
	}
	return &Account{AccountID: accountID, DomainID: domainID, Quorum: quorum, Data: data}, nil
}

// NewPeer implements ObjectFactory.
func (ModelFactory) NewPeer(publicKey, address string) (*Peer, error) {
	if publicKey == "" {
		return nil, errors.New("empty peer key")
	}
	return &Peer{PublicKey: publicKey, Address: address}, nil
}

// NewAsset implements ObjectFactory.
func (ModelFactory) NewAsset(assetID, domainID string, precision int) (*Asset, error) {
	if assetID == "" {
		return nil, errors.New("empty asset id")
	}
	if precision < 0 {
		return nil, errors.Errorf("negative asset precision %d", precision)
	}
	return &Asset{AssetID: assetID, DomainID: domainID, Precision: precision}, nil
}

// NewRole implements ObjectFactory.
func (ModelFactory) NewRole(roleID string) (*Role, error) {
	if roleID == "" {
		return nil, errors.New("empty role id")
	}
	return &Role{RoleID: roleID}, nil
}

// NewDomain implements ObjectFactory.
func (ModelFactory) NewDomain(domainID, defaultRole string) (*Domain, error) {
	if domainID == "" {
		return nil, errors.New("empty domain id")
	}
	return &Domain{DomainID: domainID, DefaultRole: defaultRole}, nil
}

// NewAccountAsset implements ObjectFactory.
func (ModelFactory) NewAccountAsset(accountID, assetID, amount string) (*AccountAsset, error) {
	if accountID == "" || assetID == "" {
		return nil, errors.New("empty account asset identity")
	}
	return &AccountAsset{AccountID: accountID, AssetID: assetID, Amount: amount}, nil
}
