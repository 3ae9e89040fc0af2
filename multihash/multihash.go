// Package multihash implements the self-describing hash format used to
// address every block and node in the store.
//
// The binary form is
//
//	[1-byte function code][1-byte digest length][digest bytes]
//
// with a maximum digest length of 127. Function codes come from a closed
// registry (see Code). Two string forms are provided: hex, used for block
// filenames, and base58, used wherever a hash is shown to a person.
package multihash

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// MaxDigestLength is the largest digest the one-byte length prefix can carry.
const MaxDigestLength = 127

var (
	ErrDigestTooLong       = errors.New("multihash: digest too long")
	ErrUnsupportedFunction = errors.New("multihash: unsupported function code")
	ErrInvalidMultihash    = errors.New("multihash: invalid multihash")
)

// Multihash is the raw binary form. Values are treated as immutable; use
// Equal (or string conversion) for comparison.
type Multihash []byte

// DecodedMultihash is the parsed view of a Multihash.
type DecodedMultihash struct {
	Code   Code
	Length int
	Digest []byte
}

// Encode builds a Multihash from a digest and the function that produced it.
func Encode(digest []byte, code Code) (Multihash, error) {
	if len(digest) > MaxDigestLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrDigestTooLong, len(digest))
	}
	if !code.Registered() {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnsupportedFunction, uint8(code))
	}
	out := make([]byte, 0, len(digest)+2)
	out = append(out, byte(code), byte(len(digest)))
	out = append(out, digest...)
	return Multihash(out), nil
}

// Decode parses and validates the binary form.
func Decode(b []byte) (DecodedMultihash, error) {
	if len(b) < 2 {
		return DecodedMultihash{}, fmt.Errorf("%w: %d bytes is too short", ErrInvalidMultihash, len(b))
	}
	code := Code(b[0])
	if !code.Registered() {
		return DecodedMultihash{}, fmt.Errorf("%w: 0x%02x", ErrUnsupportedFunction, b[0])
	}
	length := int(b[1])
	if length > MaxDigestLength {
		return DecodedMultihash{}, fmt.Errorf("%w: %d bytes", ErrDigestTooLong, length)
	}
	if len(b)-2 != length {
		return DecodedMultihash{}, fmt.Errorf("%w: length byte %d, digest has %d bytes", ErrInvalidMultihash, length, len(b)-2)
	}
	return DecodedMultihash{Code: code, Length: length, Digest: b[2:]}, nil
}

// Cast validates b and returns it as a Multihash without copying.
func Cast(b []byte) (Multihash, error) {
	if _, err := Decode(b); err != nil {
		return nil, err
	}
	return Multihash(b), nil
}

// FromHexString parses the filename-safe form.
func FromHexString(s string) (Multihash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMultihash, err)
	}
	return Cast(b)
}

// FromB58String parses the human-facing form.
func FromB58String(s string) (Multihash, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMultihash, err)
	}
	return Cast(b)
}

func (m Multihash) HexString() string { return hex.EncodeToString(m) }

func (m Multihash) B58String() string { return base58.Encode(m) }

// String returns the base58 form.
func (m Multihash) String() string { return m.B58String() }

// Code returns the function code, or 0 for an empty value.
func (m Multihash) Code() Code {
	if len(m) == 0 {
		return 0
	}
	return Code(m[0])
}

// Digest returns the digest portion without validation.
func (m Multihash) Digest() []byte {
	if len(m) < 2 {
		return nil
	}
	return m[2:]
}

func (m Multihash) Equal(o Multihash) bool { return bytes.Equal(m, o) }

// Validate reports whether m is a well-formed Multihash.
func (m Multihash) Validate() error {
	_, err := Decode(m)
	return err
}
