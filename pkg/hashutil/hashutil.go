package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"lukechampine.com/blake3"
)

type HashAlgo string

const (
	HashAlgoSHA256 = "sha256"
	HashAlgoBLAKE3 = "blake3"
)

// HashBytes returns the hash of bytes as a hex string using the specified algorithm.
// Supported algorithms: "sha256" and "blake3".
func HashBytes(data []byte, algo HashAlgo) (string, error) {
	switch algo {
	case HashAlgoSHA256:
		return SumSHA256(data), nil
	case HashAlgoBLAKE3:
		return hashBytesBlake3(data), nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm: %s", algo)
	}
}

// SumSHA256 returns the SHA-256 of data as a lowercase hex string.
// Exposed directly because cache key fingerprinting is pinned to SHA-256
// and has no error path.
func SumSHA256(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// NewHasher returns an incremental hasher for the specified algorithm.
// Callers that digest multiple files into one value (e.g. an entry's
// content digest) feed it with successive Writes and finish with HexSum.
func NewHasher(algo HashAlgo) (hash.Hash, error) {
	switch algo {
	case HashAlgoSHA256:
		return sha256.New(), nil
	case HashAlgoBLAKE3:
		return blake3.New(32, nil), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", algo)
	}
}

// HashReader streams r through a hasher for the specified algorithm and
// returns the hex digest.
func HashReader(r io.Reader, algo HashAlgo) (string, error) {
	h, err := NewHasher(algo)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hashing read failed: %w", err)
	}
	return HexSum(h), nil
}

// HexSum finalizes an incremental hasher into a lowercase hex string.
func HexSum(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

func hashBytesBlake3(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}
