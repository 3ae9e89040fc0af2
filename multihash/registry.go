package multihash

import (
	"fmt"
	"strings"

	gomh "github.com/multiformats/go-multihash"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
)

// Code identifies a hash function.
type Code uint8

const (
	SHA1     Code = 0x11
	SHA2_256 Code = 0x12
	SHA2_512 Code = 0x13
	SHA3     Code = 0x14
	BLAKE2B  Code = 0x40
	BLAKE2S  Code = 0x41
)

// Default is the canonical function used throughout the store.
const Default = SHA2_256

var names = map[Code]string{
	SHA1:     "sha1",
	SHA2_256: "sha2-256",
	SHA2_512: "sha2-512",
	SHA3:     "sha3",
	BLAKE2B:  "blake2b",
	BLAKE2S:  "blake2s",
}

// Lengths holds the natural digest length of every registered function.
var Lengths = map[Code]int{
	SHA1:     20,
	SHA2_256: 32,
	SHA2_512: 64,
	SHA3:     64,
	BLAKE2B:  64,
	BLAKE2S:  32,
}

func (c Code) Registered() bool {
	_, ok := names[c]
	return ok
}

func (c Code) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("unknown(0x%02x)", uint8(c))
}

// CodeByName resolves a registry name such as "sha2-256".
func CodeByName(name string) (Code, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for c, n := range names {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFunction, name)
}

// Sum digests data with the given function and encodes the result.
func Sum(data []byte, code Code) (Multihash, error) {
	digest, err := digest(data, code)
	if err != nil {
		return nil, err
	}
	return Encode(digest, code)
}

// Hash returns the canonical multihash of data.
func Hash(data []byte) Multihash {
	mh, err := Sum(data, Default)
	if err != nil {
		// The default function is registered and its digest fits the
		// length byte; failure here is a broken build.
		panic(fmt.Sprintf("multihash: canonical hash failed: %v", err))
	}
	return mh
}

func digest(data []byte, code Code) ([]byte, error) {
	switch code {
	case SHA1, SHA2_256, SHA2_512:
		return goSum(data, uint64(code))
	case SHA3:
		return goSum(data, gomh.SHA3_512)
	case BLAKE2B:
		d := blake2b.Sum512(data)
		return d[:], nil
	case BLAKE2S:
		d := blake2s.Sum256(data)
		return d[:], nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnsupportedFunction, uint8(code))
	}
}

func goSum(data []byte, code uint64) ([]byte, error) {
	mh, err := gomh.Sum(data, code, -1)
	if err != nil {
		return nil, err
	}
	dm, err := gomh.Decode(mh)
	if err != nil {
		return nil, err
	}
	return dm.Digest, nil
}
