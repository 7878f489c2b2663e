package headers

import (
	"slices"

	comms "github.com/nats-io/nats.go"
)

// FromNATS bridges the transport's native message headers. Keys are lowercased and visited in
// sorted order; excluded keys are skipped and binary keys are rejected, as for FromWire.
func FromNATS(hdr comms.Header) (*RequestHeaders, error) {
	keys := make([]string, 0, len(hdr))
	for k := range hdr {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	entries := make([]MetadataEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, MetadataEntry{Key: k, Value: hdr[k]})
	}
	return FromWire(entries)
}

// ToNATS renders the headers as native message headers, applying the ToWire rules.
func (h *RequestHeaders) ToNATS() comms.Header {
	hdr := comms.Header{}
	for _, e := range h.ToWire() {
		hdr[e.Key] = e.Value
	}
	return hdr
}
