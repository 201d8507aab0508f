package store

import (
	"testing"

	"QuorumCert/internal/entities"
)

// newTestStore creates a temporary store for testing.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// testCertificate builds a certificate over a one-part message.
func testCertificate(previousHash, digest string, epoch entities.Epoch) *entities.Certificate {
	message := entities.NewProtocolMessage()
	message.SetPart(entities.PartKeySnapshotDigest, digest)

	return entities.NewCertificate(previousHash, entities.MithrilStakeDistribution(epoch), message, "avk", []byte("sig"))
}

// TestStoreSetGet tests raw key-value round trips.
func TestStoreSetGet(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set([]byte("key"), []byte("value")); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := s.Get([]byte("key"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if string(got) != "value" {
		t.Errorf("get: got %q, want %q", got, "value")
	}

	missing, err := s.Get([]byte("missing"))
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}

	if missing != nil {
		t.Error("missing key should return nil")
	}
}

// TestStoreCompressedRoundTrip tests the zstd path.
func TestStoreCompressedRoundTrip(t *testing.T) {
	s := newTestStore(t)

	payload := make([]byte, 10_000)
	for i := range payload {
		payload[i] = byte(i % 7)
	}

	if err := s.SetCompressed([]byte("blob"), payload); err != nil {
		t.Fatalf("set compressed: %v", err)
	}

	got, err := s.GetCompressed([]byte("blob"))
	if err != nil {
		t.Fatalf("get compressed: %v", err)
	}

	if string(got) != string(payload) {
		t.Error("compressed round trip should preserve the payload")
	}
}

// TestCloseReleasesStore tests that Close syncs pending writes and releases
// the database handle so the same path can be reopened.
func TestCloseReleasesStore(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	if err := s.Set([]byte("key"), []byte("value")); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}

	t.Cleanup(func() {
		reopened.Close()
	})

	value, err := reopened.Get([]byte("key"))
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}

	if string(value) != "value" {
		t.Errorf("value after reopen: got %q, want %q", value, "value")
	}
}

// TestCertificateStore tests save, get, latest and list.
func TestCertificateStore(t *testing.T) {
	cs := NewCertificateStore(newTestStore(t))

	first := testCertificate("", "digest-1", 1)
	second := testCertificate(first.Hash, "digest-2", 1)

	if err := cs.Save(first); err != nil {
		t.Fatalf("save first: %v", err)
	}

	if err := cs.Save(second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	got, err := cs.Get(first.Hash)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got == nil || got.Hash != first.Hash {
		t.Error("stored certificate should round trip by hash")
	}

	if got.SignedMessage != first.SignedMessage {
		t.Error("signed message should survive storage")
	}

	latest, err := cs.Latest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}

	if latest == nil || latest.Hash != second.Hash {
		t.Error("latest should be the most recently saved certificate")
	}

	certs, err := cs.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(certs) != 2 {
		t.Errorf("list: got %d certificates, want 2", len(certs))
	}
}

// TestCertificateStoreMissing tests nil results for unknown hashes.
func TestCertificateStoreMissing(t *testing.T) {
	cs := NewCertificateStore(newTestStore(t))

	got, err := cs.Get("unknown")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got != nil {
		t.Error("unknown certificate should be nil")
	}

	latest, err := cs.Latest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}

	if latest != nil {
		t.Error("latest on empty store should be nil")
	}
}

// TestArtifactStore tests save, get and kind-scoped listing in beacon order.
func TestArtifactStore(t *testing.T) {
	as := NewArtifactStore(newTestStore(t))

	records := []*ArtifactRecord{
		{SignedEntityType: entities.CardanoTransactions(1, 200), CertificateHash: "c2", Artifact: []byte(`{"n":2}`)},
		{SignedEntityType: entities.CardanoTransactions(1, 100), CertificateHash: "c1", Artifact: []byte(`{"n":1}`)},
		{SignedEntityType: entities.MithrilStakeDistribution(1), CertificateHash: "c3", Artifact: []byte(`{"n":3}`)},
	}

	for _, record := range records {
		if err := as.Save(record); err != nil {
			t.Fatalf("save %s: %v", record.SignedEntityType, err)
		}
	}

	got, err := as.Get(entities.CardanoTransactions(1, 100))
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got == nil || got.CertificateHash != "c1" {
		t.Error("artifact record should round trip by entity")
	}

	txRecords, err := as.ListByKind(entities.KindCardanoTransactions)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(txRecords) != 2 {
		t.Fatalf("list: got %d transaction records, want 2", len(txRecords))
	}

	if txRecords[0].SignedEntityType.BlockNumber != 100 || txRecords[1].SignedEntityType.BlockNumber != 200 {
		t.Error("transaction records should list in beacon order")
	}

	stakeRecords, err := as.ListByKind(entities.KindMithrilStakeDistribution)
	if err != nil {
		t.Fatalf("list stake: %v", err)
	}

	if len(stakeRecords) != 1 {
		t.Errorf("list stake: got %d records, want 1", len(stakeRecords))
	}
}

// TestTransactionStore tests block-ordered retrieval and the highest block.
func TestTransactionStore(t *testing.T) {
	ts := NewTransactionStore(newTestStore(t))

	txs := []entities.Transaction{
		{Hash: "tx-c", BlockNumber: 30},
		{Hash: "tx-a", BlockNumber: 10},
		{Hash: "tx-b", BlockNumber: 20},
	}

	if err := ts.Save(txs); err != nil {
		t.Fatalf("save: %v", err)
	}

	upTo20, err := ts.GetUpTo(20)
	if err != nil {
		t.Fatalf("get up to: %v", err)
	}

	if len(upTo20) != 2 {
		t.Fatalf("get up to 20: got %d transactions, want 2", len(upTo20))
	}

	if upTo20[0].Hash != "tx-a" || upTo20[1].Hash != "tx-b" {
		t.Error("transactions should come back in block order")
	}

	highest, err := ts.HighestBlock()
	if err != nil {
		t.Fatalf("highest block: %v", err)
	}

	if highest != 30 {
		t.Errorf("highest block: got %d, want 30", highest)
	}
}

// TestTransactionStoreEmpty tests zero values on an empty store.
func TestTransactionStoreEmpty(t *testing.T) {
	ts := NewTransactionStore(newTestStore(t))

	highest, err := ts.HighestBlock()
	if err != nil {
		t.Fatalf("highest block: %v", err)
	}

	if highest != 0 {
		t.Errorf("highest block on empty store: got %d, want 0", highest)
	}

	txs, err := ts.GetUpTo(100)
	if err != nil {
		t.Fatalf("get up to: %v", err)
	}

	if len(txs) != 0 {
		t.Errorf("empty store should yield no transactions, got %d", len(txs))
	}
}

// TestSignerStore tests epoch-scoped signer persistence.
func TestSignerStore(t *testing.T) {
	ss := NewSignerStore(newTestStore(t))

	signers := []entities.SignerWithStake{
		{PartyID: "party-1", VerificationKey: "aa", Stake: 10},
		{PartyID: "party-2", VerificationKey: "bb", Stake: 20},
	}

	for _, signer := range signers {
		if err := ss.Save(3, signer); err != nil {
			t.Fatalf("save %s: %v", signer.PartyID, err)
		}
	}

	if err := ss.Save(4, entities.SignerWithStake{PartyID: "party-3", VerificationKey: "cc", Stake: 30}); err != nil {
		t.Fatalf("save epoch 4 signer: %v", err)
	}

	epoch3, err := ss.ListByEpoch(3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(epoch3) != 2 {
		t.Errorf("epoch 3: got %d signers, want 2", len(epoch3))
	}

	epoch4, err := ss.ListByEpoch(4)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(epoch4) != 1 || epoch4[0].PartyID != "party-3" {
		t.Error("epoch 4 should hold only its own signer")
	}
}
