// Package whitelist verifies membership in a raffle's private buyer set using
// Merkle inclusion proofs. Leaves are Keccak-256 hashes of account addresses
// and sibling pairs are hashed in sorted order, so proofs carry no position
// bits.
package whitelist

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// HashSize is the size of a Merkle node in bytes.
const HashSize = 32

func keccak(data ...[]byte) [HashSize]byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out [HashSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Leaf hashes an account address into a tree leaf. Hex-encoded addresses are
// hashed over their raw bytes; anything else is hashed as-is.
func Leaf(account string) [HashSize]byte {
	if b, ok := decodeHex(account); ok {
		return keccak(b)
	}
	return keccak([]byte(account))
}

func decodeHex(s string) ([]byte, bool) {
	trimmed := strings.TrimPrefix(s, "0x")
	if trimmed == s || len(trimmed)%2 != 0 {
		return nil, false
	}
	b, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, false
	}
	return b, true
}

func hashPair(a, b [HashSize]byte) [HashSize]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return keccak(a[:], b[:])
}

// Verify folds the proof over the leaf and reports whether it reproduces root.
// A pure function: no side effects, safe for concurrent use.
func Verify(proof [][HashSize]byte, root, leaf [HashSize]byte) bool {
	node := leaf
	for _, sibling := range proof {
		node = hashPair(node, sibling)
	}
	return node == root
}

// Tree is a Merkle tree over a set of account addresses. Odd nodes are carried
// up a level unhashed.
type Tree struct {
	levels [][][HashSize]byte
	index  map[[HashSize]byte]int
}

// BuildTree constructs a tree over the given accounts. Order is preserved;
// duplicate accounts keep the first position.
func BuildTree(accounts []string) (*Tree, error) {
	if len(accounts) == 0 {
		return nil, fmt.Errorf("whitelist: no accounts")
	}
	leaves := make([][HashSize]byte, len(accounts))
	index := make(map[[HashSize]byte]int, len(accounts))
	for i, a := range accounts {
		leaves[i] = Leaf(a)
		if _, seen := index[leaves[i]]; !seen {
			index[leaves[i]] = i
		}
	}

	levels := [][][HashSize]byte{leaves}
	for len(levels[len(levels)-1]) > 1 {
		prev := levels[len(levels)-1]
		next := make([][HashSize]byte, 0, (len(prev)+1)/2)
		for i := 0; i < len(prev); i += 2 {
			if i+1 == len(prev) {
				next = append(next, prev[i])
				continue
			}
			next = append(next, hashPair(prev[i], prev[i+1]))
		}
		levels = append(levels, next)
	}

	return &Tree{levels: levels, index: index}, nil
}

// Root returns the tree root.
func (t *Tree) Root() [HashSize]byte {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// RootHex returns the tree root as a 0x-prefixed hex string, the form stored
// on a raffle record.
func (t *Tree) RootHex() string {
	root := t.Root()
	return "0x" + hex.EncodeToString(root[:])
}

// Proof returns the inclusion proof for an account, or false if the account is
// not in the set.
func (t *Tree) Proof(account string) ([][HashSize]byte, bool) {
	pos, ok := t.index[Leaf(account)]
	if !ok {
		return nil, false
	}
	var proof [][HashSize]byte
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := pos ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		pos /= 2
	}
	return proof, true
}

// ProofHex returns the inclusion proof as hex strings for API payloads.
func (t *Tree) ProofHex(account string) ([]string, bool) {
	proof, ok := t.Proof(account)
	if !ok {
		return nil, false
	}
	out := make([]string, len(proof))
	for i, p := range proof {
		out[i] = "0x" + hex.EncodeToString(p[:])
	}
	return out, true
}

// ParseProof decodes hex-encoded proof nodes from an API payload.
func ParseProof(nodes []string) ([][HashSize]byte, error) {
	proof := make([][HashSize]byte, len(nodes))
	for i, n := range nodes {
		b, ok := decodeHex(n)
		if !ok || len(b) != HashSize {
			return nil, fmt.Errorf("whitelist: invalid proof node %q", n)
		}
		copy(proof[i][:], b)
	}
	return proof, nil
}

// ParseRoot decodes a hex-encoded root from a raffle record.
func ParseRoot(s string) ([HashSize]byte, error) {
	var root [HashSize]byte
	b, ok := decodeHex(s)
	if !ok || len(b) != HashSize {
		return root, fmt.Errorf("whitelist: invalid root %q", s)
	}
	copy(root[:], b)
	return root, nil
}
