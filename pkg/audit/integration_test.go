//go:build integration

package audit

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/comms-transport/pkg/errmodel"
)

const auditIntegrationPrefix = "audit:integration_test"

// setupIntegrationPool connects to DATABASE_URL, applies the schema and clears old records.
func setupIntegrationPool(t *testing.T) (context.Context, *pgxpool.Pool) {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("audit:integration_test - DATABASE_URL not set, skipping")
	}
	ctx := context.Background()

	if err := EnsureDatabase(ctx, url); err != nil {
		t.Fatalf("%s - EnsureDatabase failed: %v", auditIntegrationPrefix, err)
	}
	pool, err := NewPool(ctx, url)
	if err != nil {
		t.Fatalf("%s - NewPool failed: %v", auditIntegrationPrefix, err)
	}
	t.Cleanup(pool.Close)

	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("%s - Migrate failed: %v", auditIntegrationPrefix, err)
	}
	if err := Clear(ctx, pool); err != nil {
		t.Fatalf("%s - Clear failed: %v", auditIntegrationPrefix, err)
	}
	return ctx, pool
}

func TestIntegration_RecordAndRecent(t *testing.T) {
	ctx, pool := setupIntegrationPool(t)
	store := NewStore(pool)

	model := errmodel.NewErrorModel[errmodel.ErrorReason](errmodel.StatusInvalidArgument, 400, "No chat title provided.").
		WithDetails(errmodel.ReasonInvalidArgument, "runtiva.com").
		AttachContext("chat-persist.runtiva.com", errmodel.Ptr[int64](1234567890), errmodel.Ptr("chat.chatgroup.command.create")).
		Model()

	first, err := store.Record(ctx, "chat.chatgroup.command.create", "chat-persist.runtiva.com", model.Reply())
	if err != nil {
		t.Fatalf("%s - Record failed: %v", auditIntegrationPrefix, err)
	}
	second, err := store.Record(ctx, "chat.get", "chat-persist.runtiva.com", &errmodel.ErrorReply{Code: 404, Status: 5, Message: "missing"})
	if err != nil {
		t.Fatalf("%s - Record failed: %v", auditIntegrationPrefix, err)
	}
	if second <= first {
		t.Errorf("%s - ids not increasing: %d, %d", auditIntegrationPrefix, first, second)
	}

	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("%s - Recent failed: %v", auditIntegrationPrefix, err)
	}
	if len(records) != 2 {
		t.Fatalf("%s - expected 2 records, got %d", auditIntegrationPrefix, len(records))
	}
	if records[0].Subject != "chat.get" || len(records[0].Reply.Details) != 0 {
		t.Errorf("%s - newest record = %+v", auditIntegrationPrefix, records[0])
	}

	got := records[1].Reply
	if got.Code != 400 || got.Status != int32(errmodel.StatusInvalidArgument) || len(got.Details) != 1 {
		t.Fatalf("%s - stored reply = %+v", auditIntegrationPrefix, got)
	}
	decoded, err := errmodel.ModelFromReply[errmodel.ErrorReason](&got)
	if err != nil {
		t.Fatalf("%s - stored reply does not decode: %v", auditIntegrationPrefix, err)
	}
	if decoded.Details[0].Metadata[errmodel.MetaKeyRequestor] != "1234567890" {
		t.Errorf("%s - metadata = %v", auditIntegrationPrefix, decoded.Details[0].Metadata)
	}
}

func TestIntegration_Sink(t *testing.T) {
	ctx, pool := setupIntegrationPool(t)
	store := NewStore(pool)

	store.Sink("billing")(ctx, "billing.charge", &errmodel.ErrorReply{Code: 503, Status: 14})

	records, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("%s - Recent failed: %v", auditIntegrationPrefix, err)
	}
	if len(records) != 1 || records[0].Service != "billing" || records[0].Reply.Code != 503 {
		t.Errorf("%s - records = %+v", auditIntegrationPrefix, records)
	}
}
