package merkle

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Domain separation prefixes. Leaves and internal nodes hash differently so
// an internal node can never be replayed as a leaf.
const (
	leafPrefix = 0x00
	nodePrefix = 0x01
)

// Tree is a BLAKE3 Merkle tree over a fixed set of leaves.
// Immutable after construction and safe for concurrent reads.
type Tree struct {
	levels [][][32]byte     // levels[0] are the leaf hashes, last level is the root
	index  map[[32]byte]int // index maps leaf hash to its position
}

// NewTree builds a tree over the given leaves.
// Leaf order is preserved; at least one leaf is required.
func NewTree(leaves [][]byte) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, fmt.Errorf("merkle tree requires at least one leaf")
	}

	hashes := make([][32]byte, len(leaves))
	index := make(map[[32]byte]int, len(leaves))

	for i, leaf := range leaves {
		hashes[i] = hashLeaf(leaf)
		index[hashes[i]] = i
	}

	levels := [][][32]byte{hashes}

	for len(levels[len(levels)-1]) > 1 {
		levels = append(levels, buildLevel(levels[len(levels)-1]))
	}

	return &Tree{levels: levels, index: index}, nil
}

// buildLevel hashes pairs of nodes into the next level.
// An odd trailing node is paired with itself.
func buildLevel(nodes [][32]byte) [][32]byte {
	next := make([][32]byte, 0, (len(nodes)+1)/2)

	for i := 0; i < len(nodes); i += 2 {
		right := nodes[i]
		if i+1 < len(nodes) {
			right = nodes[i+1]
		}

		next = append(next, hashNode(nodes[i], right))
	}

	return next
}

// Root returns the tree root.
func (t *Tree) Root() [32]byte {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// RootHex returns the hex-encoded tree root.
func (t *Tree) RootHex() string {
	root := t.Root()
	return hex.EncodeToString(root[:])
}

// LeafCount returns the number of leaves.
func (t *Tree) LeafCount() int {
	return len(t.levels[0])
}

// Proof is a membership proof for one leaf.
type Proof struct {
	LeafIndex int        `json:"leaf_index"` // LeafIndex is the leaf's position in the tree
	Siblings  [][32]byte `json:"siblings"`   // Siblings are the sibling hashes from leaf to root
}

// Prove returns a membership proof for the given leaf content.
func (t *Tree) Prove(leaf []byte) (*Proof, error) {
	idx, ok := t.index[hashLeaf(leaf)]
	if !ok {
		return nil, fmt.Errorf("leaf not in tree")
	}

	proof := &Proof{LeafIndex: idx}

	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := idx ^ 1
		if sibling >= len(level) {
			sibling = idx // odd trailing node pairs with itself
		}

		proof.Siblings = append(proof.Siblings, level[sibling])
		idx /= 2
	}

	return proof, nil
}

// VerifyProof checks a membership proof against a root.
func VerifyProof(root [32]byte, leaf []byte, proof *Proof) bool {
	current := hashLeaf(leaf)
	idx := proof.LeafIndex

	for _, sibling := range proof.Siblings {
		if idx%2 == 0 {
			current = hashNode(current, sibling)
		} else {
			current = hashNode(sibling, current)
		}

		idx /= 2
	}

	return bytes.Equal(current[:], root[:])
}

// hashLeaf hashes leaf content with the leaf prefix.
func hashLeaf(leaf []byte) [32]byte {
	h := blake3.New()
	h.Write([]byte{leafPrefix})
	h.Write(leaf)

	var sum [32]byte
	h.Sum(sum[:0])

	return sum
}

// hashNode hashes two child nodes with the node prefix.
func hashNode(left, right [32]byte) [32]byte {
	h := blake3.New()
	h.Write([]byte{nodePrefix})
	h.Write(left[:])
	h.Write(right[:])

	var sum [32]byte
	h.Sum(sum[:0])

	return sum
}
