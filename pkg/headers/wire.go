package headers

import (
	"fmt"
	"slices"
	"strings"
)

// MetadataEntry is one wire header: a key with all of its values.
type MetadataEntry struct {
	Key   string   `json:"key"`
	Value []string `json:"value"`
}

// excludedKeys are transport artifacts that never cross the bridge in either direction.
var excludedKeys = []string{"grpc-accept-encoding", "accept-encoding"}

// IsExcluded reports whether key is one of the transport-infrastructure headers, in any casing.
func IsExcluded(key string) bool {
	for _, k := range excludedKeys {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

// FromWire builds RequestHeaders from wire entries. The first entry for a key replaces anything
// recorded for it earlier; values inside an entry are appended in order. Excluded keys are
// skipped. Binary keys and malformed keys or values fail the whole conversion.
func FromWire(entries []MetadataEntry) (*RequestHeaders, error) {
	h := New()
	for _, e := range entries {
		if IsExcluded(e.Key) {
			continue
		}
		if IsBinaryKey(e.Key) {
			return nil, fmt.Errorf("%w: binary key %q is not carried on the wire", ErrInvalidKey, e.Key)
		}
		for i, v := range e.Value {
			var err error
			if i == 0 {
				err = h.Set(e.Key, v)
			} else {
				err = h.Append(e.Key, v)
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return h, nil
}

// ToWire flattens the headers into wire entries, one per distinct key in insertion order, each
// with all values of that key. Binary and excluded keys are dropped.
func (h *RequestHeaders) ToWire() []MetadataEntry {
	out := make([]MetadataEntry, 0, len(h.keys))
	seen := make(map[string]struct{}, len(h.keys))
	for _, k := range h.keys {
		if IsExcluded(k) || IsBinaryKey(k) {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, MetadataEntry{Key: k, Value: slices.Clone(h.md[k])})
	}
	return out
}
