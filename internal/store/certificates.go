package store

import (
	"encoding/json"
	"fmt"

	"QuorumCert/internal/entities"
)

// Storage key spaces. Each typed store owns one prefix.
var (
	prefixCertificate = []byte("c:")
	prefixArtifact    = []byte("a:")
	prefixTransaction = []byte("t:")
	prefixSigner      = []byte("s:")

	keyLatestCertificate = []byte("m:latest-certificate")
)

// CertificateStore persists certificates, zstd-compressed, keyed by hash.
type CertificateStore struct {
	store *Store
}

// NewCertificateStore creates a certificate store over the given Store.
func NewCertificateStore(s *Store) *CertificateStore {
	return &CertificateStore{store: s}
}

// Save persists a certificate and updates the latest-certificate pointer.
func (cs *CertificateStore) Save(cert *entities.Certificate) error {
	data, err := json.Marshal(cert)
	if err != nil {
		return fmt.Errorf("marshal certificate %s:\n%w", cert.Hash, err)
	}

	if err := cs.store.SetCompressed(certificateKey(cert.Hash), data); err != nil {
		return fmt.Errorf("store certificate %s:\n%w", cert.Hash, err)
	}

	return cs.store.Set(keyLatestCertificate, []byte(cert.Hash))
}

// Get retrieves a certificate by hash.
// Returns nil if the certificate does not exist.
func (cs *CertificateStore) Get(hash string) (*entities.Certificate, error) {
	data, err := cs.store.GetCompressed(certificateKey(hash))
	if err != nil || data == nil {
		return nil, err
	}

	var cert entities.Certificate
	if err := json.Unmarshal(data, &cert); err != nil {
		return nil, fmt.Errorf("unmarshal certificate %s:\n%w", hash, err)
	}

	return &cert, nil
}

// Latest retrieves the most recently saved certificate.
// Returns nil if no certificate has been saved yet.
func (cs *CertificateStore) Latest() (*entities.Certificate, error) {
	hash, err := cs.store.Get(keyLatestCertificate)
	if err != nil || hash == nil {
		return nil, err
	}

	return cs.Get(string(hash))
}

// List returns all stored certificates in key order.
func (cs *CertificateStore) List() ([]*entities.Certificate, error) {
	var certs []*entities.Certificate

	err := cs.store.IteratePrefix(prefixCertificate, func(key, value []byte) error {
		data, err := cs.store.Decompress(value)
		if err != nil {
			return fmt.Errorf("decompress certificate %s:\n%w", key, err)
		}

		var cert entities.Certificate
		if err := json.Unmarshal(data, &cert); err != nil {
			return fmt.Errorf("unmarshal certificate %s:\n%w", key, err)
		}

		certs = append(certs, &cert)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return certs, nil
}

// certificateKey builds the storage key for a certificate hash.
func certificateKey(hash string) []byte {
	return append(append([]byte{}, prefixCertificate...), hash...)
}
