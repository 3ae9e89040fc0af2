package storage

import (
	"errors"
	"fmt"

	"xdao.co/dagstore/multihash"
)

// Kind is a stable category for programmatic error handling.
// Branch on Kind (or errors.Is against the sentinels), never on Error().
type Kind string

const (
	KindNotFound  Kind = "NotFound"
	KindCorrupt   Kind = "Corrupt"
	KindIO        Kind = "IO"
	KindIntegrity Kind = "Integrity"
)

// Sentinels match any *Error of the same Kind under errors.Is.
var (
	ErrNotFound  = &Error{Kind: KindNotFound}
	ErrCorrupt   = &Error{Kind: KindCorrupt}
	ErrIO        = &Error{Kind: KindIO}
	ErrIntegrity = &Error{Kind: KindIntegrity}
)

// ErrUnsupported is returned for optional operations a backend lacks.
var ErrUnsupported = errors.New("storage: operation not supported")

// Error is the structured error returned by blockstores and the DAG service.
type Error struct {
	Kind  Kind
	Op    string
	Hash  multihash.Multihash
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := "storage: "
	if e.Op != "" {
		msg += e.Op + " "
	}
	if len(e.Hash) > 0 {
		msg += e.Hash.B58String() + ": "
	}
	msg += kindText(e.Kind)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

func kindText(k Kind) string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindCorrupt:
		return "corrupt object"
	case KindIO:
		return "i/o failure"
	case KindIntegrity:
		return "integrity violation"
	default:
		return fmt.Sprintf("error (%s)", string(k))
	}
}

func NotFound(op string, h multihash.Multihash) error {
	return &Error{Kind: KindNotFound, Op: op, Hash: h}
}

func Corrupt(op string, h multihash.Multihash, cause error) error {
	return &Error{Kind: KindCorrupt, Op: op, Hash: h, Cause: cause}
}

func IOError(op string, h multihash.Multihash, cause error) error {
	return &Error{Kind: KindIO, Op: op, Hash: h, Cause: cause}
}

func Integrity(op string, h multihash.Multihash, cause error) error {
	return &Error{Kind: KindIntegrity, Op: op, Hash: h, Cause: cause}
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
