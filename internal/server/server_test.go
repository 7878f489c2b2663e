package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/morezero/comms-transport/internal/config"
	"github.com/morezero/comms-transport/pkg/audit"
	"github.com/morezero/comms-transport/pkg/errmodel"
)

const serverTestPrefix = "server:server_test"

type fakeConn struct{ connected bool }

func (f fakeConn) IsConnected() bool { return f.connected }

type fakeDB struct{ err error }

func (f fakeDB) Ping(context.Context) error { return f.err }

type fakeAudit struct {
	records []*audit.Record
	err     error
	limit   int
}

func (f *fakeAudit) Recent(_ context.Context, limit int) ([]*audit.Record, error) {
	f.limit = limit
	return f.records, f.err
}

type fakeGroups int

func (f fakeGroups) Len() int { return int(f) }

// testServer returns a Server with test config for HTTP handler tests.
func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		ServiceDomain:      "chat-persist.runtiva.com",
		Codec:              "json",
		EnvelopeVersion:    "1.0.0",
		HealthCheckTimeout: 5 * time.Second,
	}
	return &Server{cfg: cfg, conn: fakeConn{connected: true}, groups: fakeGroups(3)}
}

func serve(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth_Healthy(t *testing.T) {
	s := testServer(t)
	rec := serve(t, s, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("%s - status = %d", serverTestPrefix, rec.Code)
	}
	var h HealthOutput
	if err := json.NewDecoder(rec.Body).Decode(&h); err != nil {
		t.Fatalf("%s - decode: %v", serverTestPrefix, err)
	}
	if h.Status != "healthy" || !h.Checks.Comms || h.Checks.Database != nil {
		t.Errorf("%s - health = %+v", serverTestPrefix, h)
	}
	if h.Service != "chat-persist.runtiva.com" {
		t.Errorf("%s - service = %q", serverTestPrefix, h.Service)
	}
}

func TestHealth_Disconnected(t *testing.T) {
	s := testServer(t)
	s.conn = fakeConn{}
	rec := serve(t, s, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("%s - status = %d", serverTestPrefix, rec.Code)
	}
}

func TestHealth_DatabaseDown(t *testing.T) {
	s := testServer(t)
	s.db = fakeDB{err: errors.New("connection refused")}
	h := s.Health(context.Background())
	if h.Status != "unhealthy" || h.Checks.Database == nil || *h.Checks.Database {
		t.Errorf("%s - health = %+v", serverTestPrefix, h)
	}
}

func TestReady(t *testing.T) {
	s := testServer(t)
	if rec := serve(t, s, "/ready"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ready"`) {
		t.Errorf("%s - ready = %d %s", serverTestPrefix, rec.Code, rec.Body.String())
	}
	s.conn = fakeConn{}
	if rec := serve(t, s, "/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("%s - not ready status = %d", serverTestPrefix, rec.Code)
	}
}

func TestErrors_Disabled(t *testing.T) {
	if rec := serve(t, testServer(t), "/errors"); rec.Code != http.StatusNotFound {
		t.Errorf("%s - status = %d", serverTestPrefix, rec.Code)
	}
}

func TestErrors_Lists(t *testing.T) {
	s := testServer(t)
	fa := &fakeAudit{records: []*audit.Record{{
		ID:      7,
		Subject: "chat.chatgroup.command.create",
		Service: "chat-persist.runtiva.com",
		Reply: errmodel.ErrorReply{
			Code:    400,
			Message: "No chat title provided.",
			Status:  errmodel.StatusInvalidArgument.Wire(),
			Details: []errmodel.ErrorDetailsReply{{Reason: "CHAT_TITLE_EMPTY", Domain: "runtiva.com"}},
		},
	}}}
	s.audit = fa

	rec := serve(t, s, "/errors?limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("%s - status = %d", serverTestPrefix, rec.Code)
	}
	if fa.limit != 5 {
		t.Errorf("%s - limit = %d", serverTestPrefix, fa.limit)
	}
	var got []audit.Record
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("%s - decode: %v", serverTestPrefix, err)
	}
	if len(got) != 1 || got[0].ID != 7 || got[0].Reply.Details[0].Reason != "CHAT_TITLE_EMPTY" {
		t.Errorf("%s - records = %+v", serverTestPrefix, got)
	}
}

func TestErrors_BadLimit(t *testing.T) {
	s := testServer(t)
	s.audit = &fakeAudit{}
	if rec := serve(t, s, "/errors?limit=-1"); rec.Code != http.StatusBadRequest {
		t.Errorf("%s - status = %d", serverTestPrefix, rec.Code)
	}
}

func TestErrors_DefaultLimit(t *testing.T) {
	s := testServer(t)
	fa := &fakeAudit{}
	s.audit = fa
	serve(t, s, "/errors")
	if fa.limit != audit.DefaultRecentLimit {
		t.Errorf("%s - limit = %d", serverTestPrefix, fa.limit)
	}
}

func TestHome(t *testing.T) {
	s := testServer(t)
	s.db = fakeDB{}
	s.audit = &fakeAudit{records: []*audit.Record{{
		Subject: "chat.chatgroup.query.get",
		Reply:   errmodel.ErrorReply{Code: 404, Message: "Chat group \"x\" not found."},
		Created: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}}

	rec := serve(t, s, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("%s - status = %d", serverTestPrefix, rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"chat-persist.runtiva.com", "Chat groups: <span class=\"stat\">3</span>", "chat.chatgroup.query.get", "2026-01-02 03:04:05", "Database: <span class=\"stat\">OK</span>"} {
		if !strings.Contains(body, want) {
			t.Errorf("%s - home page missing %q", serverTestPrefix, want)
		}
	}
}

func TestHome_AuditDisabledAndUnknownPath(t *testing.T) {
	s := testServer(t)
	if body := serve(t, s, "/").Body.String(); !strings.Contains(body, "Error audit is disabled.") {
		t.Errorf("%s - home page should report disabled audit", serverTestPrefix)
	}
	if rec := serve(t, s, "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("%s - status = %d", serverTestPrefix, rec.Code)
	}
}

func TestHome_AuditError(t *testing.T) {
	s := testServer(t)
	s.audit = &fakeAudit{err: errors.New("relation does not exist")}
	if body := serve(t, s, "/").Body.String(); !strings.Contains(body, "relation does not exist") {
		t.Errorf("%s - home page should show the audit error", serverTestPrefix)
	}
}
