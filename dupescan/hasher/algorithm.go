package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Algorithm selects the digest used for file fingerprints. The set is
// closed: newDigest dispatches with an exhaustive switch rather than a
// name-keyed registry, so an unsupported value fails at construction time.
type Algorithm string

const (
	SHA256   Algorithm = "sha256"
	SHA512   Algorithm = "sha512"
	SHA1     Algorithm = "sha1"
	MD5      Algorithm = "md5"
	XXHash64 Algorithm = "xxhash64"
)

// ParseAlgorithm converts a configuration string into an Algorithm,
// returning ErrInvalidConfig for anything outside the supported set.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(name)) {
	case SHA256:
		return SHA256, nil
	case SHA512:
		return SHA512, nil
	case SHA1:
		return SHA1, nil
	case MD5:
		return MD5, nil
	case XXHash64:
		return XXHash64, nil
	default:
		return "", fmt.Errorf("%w: unknown hash algorithm %q", ErrInvalidConfig, name)
	}
}

// newDigest creates a fresh digest state for the algorithm.
func (a Algorithm) newDigest() (hash.Hash, error) {
	switch a {
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	case SHA1:
		return sha1.New(), nil
	case MD5:
		return md5.New(), nil
	case XXHash64:
		return xxhash.New(), nil
	default:
		return nil, fmt.Errorf("%w: unknown hash algorithm %q", ErrInvalidConfig, string(a))
	}
}
