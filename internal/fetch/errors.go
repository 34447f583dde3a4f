package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies why a fetch failed.
type Kind int

const (
	KindTransport Kind = iota // network failure, timeout, truncated body
	KindResponse              // non-2xx status or oversized body
	KindDecode                // body is not a usable image
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindResponse:
		return "response"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrTransport = errors.New("transport error")
	ErrResponse  = errors.New("response error")
	ErrDecode    = errors.New("decode error")
)

// Error is the failure of a single fetch attempt. None are fatal.
type Error struct {
	Kind   Kind
	Index  int
	URL    string
	Status int // HTTP status for KindResponse, 0 otherwise
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindResponse:
		if e.Status != 0 {
			return fmt.Sprintf("image %d: %s returned status %d", e.Index, e.URL, e.Status)
		}
		return fmt.Sprintf("image %d: %s: %v", e.Index, e.URL, e.Err)
	case KindDecode:
		return fmt.Sprintf("image %d: %s is not a valid image: %v", e.Index, e.URL, e.Err)
	default:
		return fmt.Sprintf("image %d: failed to fetch %s: %v", e.Index, e.URL, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrResponse:
		return e.Kind == KindResponse
	case ErrDecode:
		return e.Kind == KindDecode
	}
	return false
}

// KindOf returns the Kind of err and whether err is an *Error.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}
