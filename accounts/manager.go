/*
 *  Copyright (C) 2017 gyee authors
 *
 *  This file is part of the gyee library.
 *
 *  The gyee library is free software: you can redistribute it and/or modify
 *  it under the terms of the GNU General Public License as published by
 *  the Free Software Foundation, either version 3 of the License, or
 *  (at your option) any later version.
 *
 *  The gyee library is distributed in the hope that it will be useful,
 *  but WITHOUT ANY WARRANTY; without even the implied warranty of
 *  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *  GNU General Public License for more details.
 *
 *  You should have received a copy of the GNU General Public License
 *  along with the gyee library.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package accounts

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/common/address"
	"github.com/slimchain/slimchain/config"
	"github.com/slimchain/slimchain/crypto/keystore"
	"github.com/slimchain/slimchain/crypto/secp256k1"
	"github.com/slimchain/slimchain/utils/logging"
)

// defaultUnlockDuration matches the console/CLI "unlock for 5 minutes"
// convention.
const defaultUnlockDuration = 5 * time.Minute

var (
	// ErrAccountNotFound account is not found.
	ErrAccountNotFound = errors.New("account is not found")

	// ErrAccountIsLocked account locked.
	ErrAccountIsLocked = errors.New("account is locked")

	// ErrInvalidSignerAddress sign addr not from
	ErrInvalidSignerAddress = errors.New("transaction sign not use from address")
)

type unlockedKey struct {
	key    *secp256k1.Key
	expire time.Time
}

// AccountManager is the node's local wallet: it owns the on-disk
// keystore and a short-lived in-memory cache of unlocked private
// keys, and is the only thing in the process allowed to produce a
// signature on the node operator's behalf.
type AccountManager struct {
	ks *keystore.Keystore

	mu       sync.Mutex
	unlocked map[string]*unlockedKey
}

func NewAccountManager(cfg *config.Config) (*AccountManager, error) {
	keydir := filepath.Join(cfg.DataDir, "keystore")
	return &AccountManager{
		ks:       keystore.NewKeystore(keydir),
		unlocked: make(map[string]*unlockedKey),
	}, nil
}

// CreateNewAccount generates a fresh secp256k1 keypair, encrypts the
// private key under passphrase, and persists it to the keystore.
func (am *AccountManager) CreateNewAccount(passphrase []byte) (*address.DisplayAddress, error) {
	key := secp256k1.GenerateKey()
	addr, err := address.FromPublicKey(key.PublicKey())
	if err != nil {
		return nil, err
	}
	if err := am.ks.SetKey(addr.String(), key.PrivateKey(), passphrase); err != nil {
		return nil, err
	}
	return addr, nil
}

// Accounts lists every address the keystore holds on disk.
func (am *AccountManager) Accounts() []*address.DisplayAddress {
	list := am.ks.List()
	addrs := make([]*address.DisplayAddress, 0, len(list))
	for _, item := range list {
		addr, err := address.Parse(item)
		if err != nil {
			logging.Logger.WithField("err", err).Error("Failed to parse keystore address")
			continue
		}
		addrs = append(addrs, addr)
	}
	return addrs
}

// Contains reports whether addr has an entry in the keystore.
func (am *AccountManager) Contains(addr *address.DisplayAddress) bool {
	ok, _ := am.ks.Contains(addr.String())
	return ok
}

// Unlock decrypts addr's private key under passphrase and caches it
// in memory for duration (defaultUnlockDuration if zero).
func (am *AccountManager) Unlock(addr *address.DisplayAddress, passphrase []byte, duration time.Duration) error {
	if duration <= 0 {
		duration = defaultUnlockDuration
	}
	priv, err := am.ks.GetKey(addr.String(), passphrase)
	if err != nil {
		return err
	}
	key, err := secp256k1.KeyFromPrivateKey(priv)
	if err != nil {
		return err
	}

	am.mu.Lock()
	defer am.mu.Unlock()
	am.unlocked[addr.String()] = &unlockedKey{key: key, expire: time.Now().Add(duration)}
	return nil
}

// Lock discards any cached unlocked key for addr.
func (am *AccountManager) Lock(addr *address.DisplayAddress) {
	am.mu.Lock()
	defer am.mu.Unlock()
	if uk, ok := am.unlocked[addr.String()]; ok {
		uk.key.Clear()
		delete(am.unlocked, addr.String())
	}
}

func (am *AccountManager) getUnlocked(addr *address.DisplayAddress) (*secp256k1.Key, error) {
	am.mu.Lock()
	defer am.mu.Unlock()
	uk, ok := am.unlocked[addr.String()]
	if !ok {
		return nil, ErrAccountIsLocked
	}
	if time.Now().After(uk.expire) {
		uk.key.Clear()
		delete(am.unlocked, addr.String())
		return nil, ErrAccountIsLocked
	}
	return uk.key, nil
}

// SignHash signs a 32-byte digest (a TxReq hash, a block header hash,
// a proposal hash) with addr's currently unlocked private key.
func (am *AccountManager) SignHash(addr *address.DisplayAddress, hash common.Hash) ([]byte, error) {
	key, err := am.getUnlocked(addr)
	if err != nil {
		logging.Logger.WithField("address", addr.String()).Error("Failed to get unlocked private key")
		return nil, err
	}

	signer := secp256k1.NewSecp256k1Signer()
	if err := signer.InitSigner(key.PrivateKey()); err != nil {
		return nil, err
	}
	sig, err := signer.Sign(hash.Bytes())
	if err != nil {
		return nil, err
	}
	return sig.Signature, nil
}

// ResetPassword re-encrypts addr's key under a new passphrase.
func (am *AccountManager) ResetPassword(addr *address.DisplayAddress, oldPass, newPass []byte) error {
	priv, err := am.ks.GetKey(addr.String(), oldPass)
	if err != nil {
		return err
	}
	return am.ks.SetKey(addr.String(), priv, newPass)
}
