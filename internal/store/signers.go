package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"QuorumCert/internal/entities"
)

// SignerStore persists epoch-scoped signer registrations so a restarted node
// can rebuild its verification-key state.
type SignerStore struct {
	store *Store
}

// NewSignerStore creates a signer store over the given Store.
func NewSignerStore(s *Store) *SignerStore {
	return &SignerStore{store: s}
}

// Save persists a signer registration for an epoch.
func (ss *SignerStore) Save(epoch entities.Epoch, signer entities.SignerWithStake) error {
	data, err := json.Marshal(signer)
	if err != nil {
		return fmt.Errorf("marshal signer %s:\n%w", signer.PartyID, err)
	}

	if err := ss.store.Set(signerKey(epoch, signer.PartyID), data); err != nil {
		return fmt.Errorf("store signer %s:\n%w", signer.PartyID, err)
	}

	return nil
}

// ListByEpoch returns all signers registered for an epoch.
func (ss *SignerStore) ListByEpoch(epoch entities.Epoch) ([]entities.SignerWithStake, error) {
	prefix := epochPrefix(epoch)

	var signers []entities.SignerWithStake

	err := ss.store.IteratePrefix(prefix, func(key, value []byte) error {
		var signer entities.SignerWithStake
		if err := json.Unmarshal(value, &signer); err != nil {
			return fmt.Errorf("unmarshal signer %s:\n%w", key, err)
		}

		signers = append(signers, signer)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return signers, nil
}

// signerKey builds the storage key for an epoch-scoped registration.
// Format: s:<epoch be8>:<party>
func signerKey(epoch entities.Epoch, party entities.PartyID) []byte {
	return append(append(epochPrefix(epoch), ':'), party...)
}

// epochPrefix builds the key prefix covering one epoch's registrations.
func epochPrefix(epoch entities.Epoch) []byte {
	prefix := append(append([]byte{}, prefixSigner...), make([]byte, 8)...)
	binary.BigEndian.PutUint64(prefix[len(prefixSigner):], uint64(epoch))

	return prefix
}
