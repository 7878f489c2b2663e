// Package codec serializes typed payloads and COMMS envelopes to and from byte buffers.
package codec

import (
	"errors"
	"fmt"
)

// Codec names accepted by ByName and the COMMS_CODEC setting.
const (
	NameJSON  = "json"
	NameProto = "proto"
)

var (
	// ErrEncodeFailure wraps every serialization error.
	ErrEncodeFailure = errors.New("codec: encode failure")
	// ErrDecodeFailure wraps every deserialization error.
	ErrDecodeFailure = errors.New("codec: decode failure")
	// ErrUnknownCodec is returned for a codec name other than NameJSON or NameProto.
	ErrUnknownCodec = errors.New("codec: unknown codec")
)

// Codec converts a T to and from bytes.
type Codec[T any] interface {
	Name() string
	ContentType() string
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// ValidName reports whether name designates a known codec.
func ValidName(name string) bool {
	return name == NameJSON || name == NameProto
}

// Funcs adapts a pair of functions to Codec. It lets a payload type carry its own wire form.
type Funcs[T any] struct {
	CodecName string
	Type      string
	EncodeFn  func(T) ([]byte, error)
	DecodeFn  func([]byte) (T, error)
}

func (f Funcs[T]) Name() string        { return f.CodecName }
func (f Funcs[T]) ContentType() string { return f.Type }

func (f Funcs[T]) Encode(v T) ([]byte, error) {
	b, err := f.EncodeFn(v)
	if err != nil {
		return nil, encodeErr(err)
	}
	return b, nil
}

func (f Funcs[T]) Decode(data []byte) (T, error) {
	v, err := f.DecodeFn(data)
	if err != nil {
		var zero T
		return zero, decodeErr(err)
	}
	return v, nil
}

func encodeErr(err error) error {
	if errors.Is(err, ErrEncodeFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrEncodeFailure, err)
}

func decodeErr(err error) error {
	if errors.Is(err, ErrDecodeFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDecodeFailure, err)
}
