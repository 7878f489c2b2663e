package main

import (
	"strings"
	"testing"
)

const mainTestPrefix = "cmd/comms-transport:main_test"

func TestUsage_NonEmpty(t *testing.T) {
	if len(usage) == 0 {
		t.Fatalf("%s - usage string is empty", mainTestPrefix)
	}
}

func TestUsage_ContainsCommands(t *testing.T) {
	required := []string{"serve", "migrate", "ensure-db", "clear", "healthcheck", "GRPC_PORT", "COMMS_URL", "DATABASE_URL"}
	for _, word := range required {
		if !strings.Contains(usage, word) {
			t.Errorf("%s - usage should contain %q", mainTestPrefix, word)
		}
	}
}

func TestWithDatabase(t *testing.T) {
	got, err := withDatabase("postgres://u:p@db:5432/main?sslmode=disable", "audit_test")
	if err != nil {
		t.Fatalf("%s - withDatabase: %v", mainTestPrefix, err)
	}
	if got != "postgres://u:p@db:5432/audit_test?sslmode=disable" {
		t.Errorf("%s - url = %q", mainTestPrefix, got)
	}
	if _, err := withDatabase("postgres://[bad", "x"); err == nil {
		t.Errorf("%s - expected parse error", mainTestPrefix)
	}
}

func TestHealthTarget(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		port    int
		want    string
		wantErr bool
	}{
		{name: "explicit address", addr: "chat-persist:9090", port: 9090, want: "chat-persist:9090"},
		{name: "local port", port: 9191, want: "127.0.0.1:9191"},
		{name: "disabled", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := healthTarget(tt.addr, tt.port)
			if (err != nil) != tt.wantErr {
				t.Fatalf("%s - err = %v", mainTestPrefix, err)
			}
			if got != tt.want {
				t.Errorf("%s - target = %q, want %q", mainTestPrefix, got, tt.want)
			}
		})
	}
}
