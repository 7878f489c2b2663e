package errmodel

import (
	"encoding/json"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
)

const statusTestPrefix = "errmodel:status_test"

func TestStatus_WireIsInjective(t *testing.T) {
	seen := map[int32]Status{}
	for _, s := range Statuses() {
		if prev, ok := seen[s.Wire()]; ok {
			t.Errorf("%s - %v and %v share wire value %d", statusTestPrefix, prev, s, s.Wire())
		}
		seen[s.Wire()] = s
		if s.String() == "" {
			t.Errorf("%s - %d has no name", statusTestPrefix, s.Wire())
		}
	}
	if len(seen) != 17 {
		t.Errorf("%s - expected 17 statuses, got %d", statusTestPrefix, len(seen))
	}
}

func TestStatus_GRPC(t *testing.T) {
	tests := []struct {
		status Status
		code   codes.Code
		name   string
	}{
		{StatusInvalidArgument, codes.InvalidArgument, "INVALID_ARGUMENT"},
		{StatusInternal, codes.Internal, "INTERNAL"},
		{StatusNotFound, codes.NotFound, "NOT_FOUND"},
		{StatusUnauthenticated, codes.Unauthenticated, "UNAUTHENTICATED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.status.GRPCCode() != tt.code {
				t.Errorf("%s - GRPCCode = %v, want %v", statusTestPrefix, tt.status.GRPCCode(), tt.code)
			}
			if StatusFromGRPC(tt.code) != tt.status {
				t.Errorf("%s - StatusFromGRPC(%v) = %v", statusTestPrefix, tt.code, StatusFromGRPC(tt.code))
			}
			if tt.status.String() != tt.name {
				t.Errorf("%s - String = %q, want %q", statusTestPrefix, tt.status.String(), tt.name)
			}
		})
	}
	if StatusFromGRPC(codes.Code(100)) != StatusUnknown {
		t.Errorf("%s - out of range code should map to UNKNOWN", statusTestPrefix)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(5)
	if err != nil || s != StatusNotFound {
		t.Errorf("%s - ParseStatus(5) = %v, %v", statusTestPrefix, s, err)
	}
	if _, err := ParseStatus(-1); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("%s - ParseStatus(-1) err = %v", statusTestPrefix, err)
	}
	if _, err := ParseStatus(17); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("%s - ParseStatus(17) err = %v", statusTestPrefix, err)
	}
}

func TestStatus_JSON(t *testing.T) {
	data, err := json.Marshal(StatusPermissionDenied)
	if err != nil || string(data) != "7" {
		t.Fatalf("%s - Marshal = %s, %v", statusTestPrefix, data, err)
	}

	var s Status
	if err := json.Unmarshal([]byte(`"ALREADY_EXISTS"`), &s); err != nil || s != StatusAlreadyExists {
		t.Errorf("%s - name form = %v, %v", statusTestPrefix, s, err)
	}
	if err := json.Unmarshal([]byte(`13`), &s); err != nil || s != StatusInternal {
		t.Errorf("%s - int form = %v, %v", statusTestPrefix, s, err)
	}
	if err := json.Unmarshal([]byte(`"NOPE"`), &s); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("%s - unknown name err = %v", statusTestPrefix, err)
	}
}
