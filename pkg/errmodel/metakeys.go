package errmodel

import (
	"errors"
	"fmt"
)

// MetaKey identifies a well-known entry in an ErrorDetails metadata map.
type MetaKey int

const (
	MetaKeyRequestor MetaKey = iota + 1
	MetaKeyRequest
	MetaKeyService
	MetaKeyDatabaseError
	MetaKeyOtherError
)

// ErrUnknownMetaKey is returned when a wire string does not name a MetaKey.
var ErrUnknownMetaKey = errors.New("unknown metadata key")

// The casing is inconsistent on purpose: these are the strings existing peers expect.
var metaKeyWire = map[MetaKey]string{
	MetaKeyRequestor:     "requestor",
	MetaKeyRequest:       "request",
	MetaKeyService:       "service",
	MetaKeyDatabaseError: "DatabaseError",
	MetaKeyOtherError:    "OtherError",
}

var metaKeyByWire = func() map[string]MetaKey {
	m := make(map[string]MetaKey, len(metaKeyWire))
	for k, s := range metaKeyWire {
		m[s] = k
	}
	return m
}()

// MetaKeys returns all well-known keys.
func MetaKeys() []MetaKey {
	return []MetaKey{MetaKeyRequestor, MetaKeyRequest, MetaKeyService, MetaKeyDatabaseError, MetaKeyOtherError}
}

// ParseMetaKey converts a wire string into a MetaKey. Matching is exact.
func ParseMetaKey(s string) (MetaKey, error) {
	k, ok := metaKeyByWire[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetaKey, s)
	}
	return k, nil
}

func (k MetaKey) String() string {
	if s, ok := metaKeyWire[k]; ok {
		return s
	}
	return fmt.Sprintf("MetaKey(%d)", int(k))
}

// MarshalText lets MetaKey act as a JSON object key.
func (k MetaKey) MarshalText() ([]byte, error) {
	s, ok := metaKeyWire[k]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMetaKey, int(k))
	}
	return []byte(s), nil
}

// UnmarshalText is the inverse of MarshalText.
func (k *MetaKey) UnmarshalText(text []byte) error {
	parsed, err := ParseMetaKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
