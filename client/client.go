package client

import (
	"fmt"
	"net/url"
	"strings"

	"QuorumCert/internal/entities"
	"QuorumCert/internal/prover"
	"QuorumCert/internal/store"
)

// Client connects to a certification node via HTTP.
type Client struct {
	nodeAddr string // nodeAddr is the HTTP address (e.g. "127.0.0.1:8080")
}

// Status holds the node's certification state.
type Status struct {
	Epoch                 entities.Epoch       `json:"epoch"`                 // Epoch is the current stake-distribution epoch
	HighestCertifiedBlock entities.BlockNumber `json:"highestCertifiedBlock"` // HighestCertifiedBlock is the last certified block
	RegisteredSigners     int                  `json:"registeredSigners"`     // RegisteredSigners counts the current epoch's signers
	OpenRoundMessage      string               `json:"openRoundMessage"`      // OpenRoundMessage is the message to sign, empty when idle
}

// ProofResponse holds membership proofs against the certified transaction set.
type ProofResponse struct {
	CertifiedUpTo entities.BlockNumber     `json:"certified_up_to"` // CertifiedUpTo is the block the proofs are valid for
	Proofs        []prover.MembershipProof `json:"proofs"`          // Proofs are the per-transaction membership proofs
}

// New creates a client connected to a node.
func New(nodeAddr string) *Client {
	return &Client{nodeAddr: nodeAddr}
}

// Status fetches the node's certification state.
func (c *Client) Status() (*Status, error) {
	var status Status
	if err := httpGet(c.url("/status"), &status); err != nil {
		return nil, fmt.Errorf("get status:\n%w", err)
	}

	return &status, nil
}

// RegisterSigner registers a signer's verification key and stake.
// A zero epoch registers for the node's current epoch.
func (c *Client) RegisterSigner(epoch entities.Epoch, signer entities.SignerWithStake) error {
	body := map[string]any{
		"party_id":         signer.PartyID,
		"verification_key": signer.VerificationKey,
		"stake":            signer.Stake,
		"epoch":            epoch,
	}

	if err := httpPostJSON(c.url("/register-signer"), body, nil); err != nil {
		return fmt.Errorf("register signer %s:\n%w", signer.PartyID, err)
	}

	return nil
}

// RegisterSignature submits a single signature for the open round.
// The node rejects signatures it cannot authenticate.
func (c *Client) RegisterSignature(signature *entities.SingleSignature) error {
	body := map[string]any{
		"party_id":    signature.PartyID,
		"signature":   fmt.Sprintf("%x", signature.Signature),
		"won_indexes": signature.WonIndexes,
	}

	if err := httpPostJSON(c.url("/register-signatures"), body, nil); err != nil {
		return fmt.Errorf("register signature for %s:\n%w", signature.PartyID, err)
	}

	return nil
}

// ImportTransactions pushes a batch of observed chain transactions.
func (c *Client) ImportTransactions(txs []entities.Transaction) error {
	if err := httpPostJSON(c.url("/transactions"), txs, nil); err != nil {
		return fmt.Errorf("import %d transactions:\n%w", len(txs), err)
	}

	return nil
}

// Certificates lists all certificates the node produced.
func (c *Client) Certificates() ([]*entities.Certificate, error) {
	var certs []*entities.Certificate
	if err := httpGet(c.url("/certificates"), &certs); err != nil {
		return nil, fmt.Errorf("list certificates:\n%w", err)
	}

	return certs, nil
}

// Certificate fetches one certificate by hash.
func (c *Client) Certificate(hash string) (*entities.Certificate, error) {
	var cert entities.Certificate
	if err := httpGet(c.url("/certificate/"+url.PathEscape(hash)), &cert); err != nil {
		return nil, fmt.Errorf("get certificate %s:\n%w", hash, err)
	}

	return &cert, nil
}

// StakeDistributionArtifacts lists the certified stake-distribution artifacts.
func (c *Client) StakeDistributionArtifacts() ([]*store.ArtifactRecord, error) {
	var records []*store.ArtifactRecord
	if err := httpGet(c.url("/artifact/mithril-stake-distributions"), &records); err != nil {
		return nil, fmt.Errorf("list stake distribution artifacts:\n%w", err)
	}

	return records, nil
}

// TransactionArtifacts lists the certified transaction-set artifacts.
func (c *Client) TransactionArtifacts() ([]*store.ArtifactRecord, error) {
	var records []*store.ArtifactRecord
	if err := httpGet(c.url("/artifact/cardano-transactions"), &records); err != nil {
		return nil, fmt.Errorf("list transaction artifacts:\n%w", err)
	}

	return records, nil
}

// TransactionProof fetches membership proofs for transaction hashes against
// the latest certified transaction set.
func (c *Client) TransactionProof(hashes []string) (*ProofResponse, error) {
	endpoint := c.url("/proof/cardano-transaction") + "?transaction_hashes=" + url.QueryEscape(strings.Join(hashes, ","))

	var resp ProofResponse
	if err := httpGet(endpoint, &resp); err != nil {
		return nil, fmt.Errorf("get transaction proofs:\n%w", err)
	}

	return &resp, nil
}

// url builds a full endpoint URL on the node.
func (c *Client) url(path string) string {
	return "http://" + c.nodeAddr + path
}
