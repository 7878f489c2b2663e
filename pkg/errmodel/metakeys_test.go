package errmodel

import (
	"encoding/json"
	"errors"
	"testing"
)

const metaKeysTestPrefix = "errmodel:metakeys_test"

func TestMetaKey_WireStrings(t *testing.T) {
	tests := []struct {
		key  MetaKey
		want string
	}{
		{MetaKeyRequestor, "requestor"},
		{MetaKeyRequest, "request"},
		{MetaKeyService, "service"},
		{MetaKeyDatabaseError, "DatabaseError"},
		{MetaKeyOtherError, "OtherError"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if tt.key.String() != tt.want {
				t.Errorf("%s - String() = %q, want %q", metaKeysTestPrefix, tt.key.String(), tt.want)
			}
			parsed, err := ParseMetaKey(tt.want)
			if err != nil || parsed != tt.key {
				t.Errorf("%s - ParseMetaKey(%q) = %v, %v", metaKeysTestPrefix, tt.want, parsed, err)
			}
		})
	}
}

func TestParseMetaKey_IsCaseSensitive(t *testing.T) {
	for _, s := range []string{"Service", "databaseerror", "REQUEST", ""} {
		if _, err := ParseMetaKey(s); !errors.Is(err, ErrUnknownMetaKey) {
			t.Errorf("%s - ParseMetaKey(%q) err = %v", metaKeysTestPrefix, s, err)
		}
	}
}

func TestMetaKey_AsJSONMapKey(t *testing.T) {
	in := map[MetaKey]string{MetaKeyService: "svc", MetaKeyDatabaseError: "dup"}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("%s - marshal: %v", metaKeysTestPrefix, err)
	}
	if string(data) != `{"DatabaseError":"dup","service":"svc"}` {
		t.Errorf("%s - got %s", metaKeysTestPrefix, data)
	}

	var out map[MetaKey]string
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("%s - unmarshal: %v", metaKeysTestPrefix, err)
	}
	if out[MetaKeyService] != "svc" || out[MetaKeyDatabaseError] != "dup" {
		t.Errorf("%s - round trip = %v", metaKeysTestPrefix, out)
	}
}

func TestMetaKeys_Unique(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range MetaKeys() {
		if seen[k.String()] {
			t.Errorf("%s - duplicate wire string %q", metaKeysTestPrefix, k.String())
		}
		seen[k.String()] = true
	}
}
