package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"QuorumCert/internal/entities"
)

// ArtifactRecord is the persisted form of a computed artifact: the signed
// entity it certifies, the certificate that produced it, and the artifact's
// canonical JSON representation.
type ArtifactRecord struct {
	SignedEntityType entities.SignedEntityType `json:"signed_entity_type"` // SignedEntityType identifies what was certified
	CertificateHash  string                    `json:"certificate_hash"`   // CertificateHash links back to the producing certificate
	Artifact         json.RawMessage           `json:"artifact"`           // Artifact is the artifact's canonical JSON form
	CreatedAt        time.Time                 `json:"created_at"`         // CreatedAt is the computation timestamp
}

// ArtifactStore persists artifact records, zstd-compressed, keyed by
// entity kind and beacon so records of one kind list together in beacon order.
type ArtifactStore struct {
	store *Store
}

// NewArtifactStore creates an artifact store over the given Store.
func NewArtifactStore(s *Store) *ArtifactStore {
	return &ArtifactStore{store: s}
}

// Save persists an artifact record.
func (as *ArtifactStore) Save(record *ArtifactRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal artifact record %s:\n%w", record.SignedEntityType, err)
	}

	key := artifactKey(record.SignedEntityType)

	if err := as.store.SetCompressed(key, data); err != nil {
		return fmt.Errorf("store artifact record %s:\n%w", record.SignedEntityType, err)
	}

	return nil
}

// Get retrieves the artifact record for a signed entity.
// Returns nil if no artifact has been computed for it.
func (as *ArtifactStore) Get(entityType entities.SignedEntityType) (*ArtifactRecord, error) {
	data, err := as.store.GetCompressed(artifactKey(entityType))
	if err != nil || data == nil {
		return nil, err
	}

	var record ArtifactRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal artifact record %s:\n%w", entityType, err)
	}

	return &record, nil
}

// ListByKind returns all artifact records of the given kind in beacon order.
func (as *ArtifactStore) ListByKind(kind entities.SignedEntityKind) ([]*ArtifactRecord, error) {
	prefix := append(append([]byte{}, prefixArtifact...), byte(kind), ':')

	var records []*ArtifactRecord

	err := as.store.IteratePrefix(prefix, func(key, value []byte) error {
		data, err := as.store.Decompress(value)
		if err != nil {
			return fmt.Errorf("decompress artifact record %s:\n%w", key, err)
		}

		var record ArtifactRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("unmarshal artifact record %s:\n%w", key, err)
		}

		records = append(records, &record)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// artifactKey builds the storage key for a signed entity.
// Format: a:<kind>:<epoch be8><block be8> so keys sort by beacon.
func artifactKey(entityType entities.SignedEntityType) []byte {
	key := append(append([]byte{}, prefixArtifact...), byte(entityType.Kind), ':')

	var beacon [16]byte
	binary.BigEndian.PutUint64(beacon[0:8], uint64(entityType.Epoch))
	binary.BigEndian.PutUint64(beacon[8:16], uint64(entityType.BlockNumber))

	return append(key, beacon[:]...)
}
