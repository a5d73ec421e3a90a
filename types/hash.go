package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/blockberries/cramberry/pkg/cramberry"
)

// HashSize is the size of a content hash in bytes.
const HashSize = 32

// Hash is a 32-byte content identifier. The zero value is the empty
// hash, used for the genesis parent and unset roots.
type Hash [HashSize]byte

// HashBytes computes the SHA-256 hash of data.
func HashBytes(data []byte) Hash {
	return sha256.Sum256(data)
}

// HashOf deterministically hashes any cramberry-serializable value.
// Panics if the value cannot be marshaled; hashing is ledger-critical
// and a marshal failure is a programming error, not a runtime
// condition.
func HashOf(v any) Hash {
	data, err := cramberry.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("ledger critical: marshal for hashing: %v", err))
	}
	return HashBytes(data)
}

// HashFromHex parses a hex-encoded hash.
func HashFromHex(s string) (Hash, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("decode hash hex: %w", err)
	}
	if len(raw) != HashSize {
		return Hash{}, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(raw))
	}
	var h Hash
	copy(h[:], raw)
	return h, nil
}

// Hex returns the lowercase hex encoding of the hash.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

// String implements fmt.Stringer with a shortened form for logs.
func (h Hash) String() string {
	if h.IsEmpty() {
		return "empty"
	}
	return h.Hex()[:12]
}

// IsEmpty reports whether the hash is all zeros.
func (h Hash) IsEmpty() bool {
	return h == Hash{}
}

// Equal compares two hashes.
func (h Hash) Equal(other Hash) bool {
	return h == other
}

// MeetsDifficulty reports whether the hash's hex encoding starts with
// difficulty zero characters. This is the proof-of-work test.
func (h Hash) MeetsDifficulty(difficulty uint32) bool {
	if difficulty == 0 {
		return true
	}
	if int(difficulty) > HashSize*2 {
		return false
	}
	return strings.HasPrefix(h.Hex(), strings.Repeat("0", int(difficulty)))
}

// FoldStateRoot folds a slice of receipts into a previous state root,
// in order. The execution and settlement layers share this rule: the
// same receipts in the same order always reproduce the same root, and
// any reordering changes it.
func FoldStateRoot(prev Hash, receipts []TransactionReceipt) Hash {
	root := prev
	var gas [8]byte
	for _, r := range receipts {
		rh := r.Hash()
		binary.BigEndian.PutUint64(gas[:], r.GasUsed)
		buf := bytes.NewBuffer(make([]byte, 0, 2*HashSize+8))
		buf.Write(root[:])
		buf.Write(rh[:])
		buf.Write(gas[:])
		root = HashBytes(buf.Bytes())
	}
	return root
}
