package entities

// Transaction is a chain transaction observed by the node.
// Only the fields needed for Merkle-proof computation are kept: the
// transaction hash is the Merkle leaf, the block number scopes the proof
// cache by beacon.
type Transaction struct {
	Hash        string      `json:"hash"`         // Hash is the hex-encoded transaction hash
	BlockNumber BlockNumber `json:"block_number"` // BlockNumber is the block the transaction belongs to
}
