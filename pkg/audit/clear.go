package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "audit:clear"

// Clear removes every audit record. The schema is kept and ids restart.
func Clear(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing audit tables", clearLogPrefix))

	if _, err := pool.Exec(ctx, `TRUNCATE TABLE error_reply_details, error_replies RESTART IDENTITY CASCADE`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}
	return nil
}
