// Package headers bridges COMMS request metadata between its wire form (a list of key / values
// entries) and RequestHeaders, an ordered multi-map backed by gRPC metadata.
package headers

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"google.golang.org/grpc/metadata"
)

// BinarySuffix marks keys whose values are binary. Binary keys are never carried on the wire.
const BinarySuffix = "-bin"

var (
	// ErrInvalidKey is returned for a key that is not a valid ASCII metadata key.
	ErrInvalidKey = errors.New("invalid metadata key")
	// ErrInvalidValue is returned for a value that is not printable ASCII.
	ErrInvalidValue = errors.New("invalid metadata value")
)

// RequestHeaders is an ordered multi-map from lowercase key to one or more values. Keys keep the
// order in which they were first inserted and the values of a key keep their insertion order.
// A RequestHeaders belongs to a single message and is not safe for concurrent mutation.
type RequestHeaders struct {
	md   metadata.MD
	keys []string
}

// New returns empty headers.
func New() *RequestHeaders {
	return &RequestHeaders{md: metadata.MD{}}
}

// PseudoHeaderPrefix starts the HTTP/2 pseudo-headers (":authority", ":path") that gRPC servers
// add to incoming metadata.
const PseudoHeaderPrefix = ":"

// FromMD copies gRPC metadata into RequestHeaders. Keys are taken in sorted order since
// metadata.MD carries no order of its own. Pseudo-headers belong to the HTTP/2 transport and
// are skipped.
func FromMD(md metadata.MD) (*RequestHeaders, error) {
	h := New()
	keys := make([]string, 0, len(md))
	for k := range md {
		if strings.HasPrefix(k, PseudoHeaderPrefix) {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := h.Append(k, md[k]...); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Set replaces all values of key. Setting no values removes the key.
func (h *RequestHeaders) Set(key string, values ...string) error {
	k, err := normalizeKey(key)
	if err != nil {
		return err
	}
	if err := validateValues(k, values); err != nil {
		return err
	}
	if len(values) == 0 {
		h.Delete(k)
		return nil
	}
	h.track(k)
	h.md[k] = slices.Clone(values)
	return nil
}

// Append adds values after the existing values of key.
func (h *RequestHeaders) Append(key string, values ...string) error {
	k, err := normalizeKey(key)
	if err != nil {
		return err
	}
	if err := validateValues(k, values); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	h.track(k)
	h.md[k] = append(h.md[k], values...)
	return nil
}

// Get returns every value of key, in insertion order.
func (h *RequestHeaders) Get(key string) []string {
	return slices.Clone(h.md.Get(key))
}

// First returns the first value of key, or "".
func (h *RequestHeaders) First(key string) string {
	if v := h.md.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}

// Delete removes key and its values.
func (h *RequestHeaders) Delete(key string) {
	k := strings.ToLower(key)
	h.md.Delete(k)
	h.keys = slices.DeleteFunc(h.keys, func(s string) bool { return s == k })
}

// Keys returns the keys in insertion order.
func (h *RequestHeaders) Keys() []string {
	return slices.Clone(h.keys)
}

// Len returns the number of distinct keys.
func (h *RequestHeaders) Len() int {
	return len(h.keys)
}

// MD returns a copy of the underlying gRPC metadata.
func (h *RequestHeaders) MD() metadata.MD {
	return h.md.Copy()
}

// Clone returns an independent copy.
func (h *RequestHeaders) Clone() *RequestHeaders {
	return &RequestHeaders{md: h.md.Copy(), keys: slices.Clone(h.keys)}
}

// Merge adds every key of other that h does not carry yet. Keys already in h keep their values.
func (h *RequestHeaders) Merge(other *RequestHeaders) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		if _, ok := h.md[k]; ok {
			continue
		}
		h.track(k)
		h.md[k] = slices.Clone(other.md[k])
	}
}

func (h *RequestHeaders) track(k string) {
	if _, ok := h.md[k]; !ok {
		h.keys = append(h.keys, k)
	}
}

// IsBinaryKey reports whether key designates binary values.
func IsBinaryKey(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), BinarySuffix)
}

func normalizeKey(key string) (string, error) {
	k := strings.ToLower(key)
	if k == "" || k == BinarySuffix {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for i := 0; i < len(k); i++ {
		c := k[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.' {
			continue
		}
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return k, nil
}

func validateValues(key string, values []string) error {
	if IsBinaryKey(key) {
		return nil
	}
	for _, v := range values {
		for i := 0; i < len(v); i++ {
			if v[i] < 0x20 || v[i] > 0x7e {
				return fmt.Errorf("%w: %q for key %q", ErrInvalidValue, v, key)
			}
		}
	}
	return nil
}
