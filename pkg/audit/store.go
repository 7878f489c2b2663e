package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/comms-transport/pkg/errmodel"
	"github.com/morezero/comms-transport/pkg/transport"
)

const storeLogPrefix = "audit:store"

// DefaultRecentLimit is used by Recent for a non-positive limit.
const DefaultRecentLimit = 50

// Store persists failed replies.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store over pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Record stores reply, with its details, as produced by a handler of subject.
func (s *Store) Record(ctx context.Context, subject, service string, reply *errmodel.ErrorReply) (int64, error) {
	var id int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO error_replies (subject, service, code, status, message)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			subject, service, reply.Code, reply.Status, reply.Message).Scan(&id)
		if err != nil {
			return err
		}
		if len(reply.Details) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for i, d := range reply.Details {
			metadata := d.Metadata
			if metadata == nil {
				metadata = []errmodel.MetaData{}
			}
			batch.Queue(
				`INSERT INTO error_reply_details (reply_id, position, reason, domain, metadata)
				 VALUES ($1, $2, $3, $4, $5)`,
				id, i, d.Reason, d.Domain, metadata)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return 0, fmt.Errorf("%s - failed to record reply for %s: %w", storeLogPrefix, subject, err)
	}

	slog.Debug(fmt.Sprintf("%s - Recorded reply %d for %s", storeLogPrefix, id, subject))
	return id, nil
}

// Recent returns the latest records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, subject, service, code, status, message, created
		 FROM error_replies
		 ORDER BY id DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to list replies: %w", storeLogPrefix, err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Record, error) {
		r := &Record{}
		err := row.Scan(&r.ID, &r.Subject, &r.Service, &r.Reply.Code, &r.Reply.Status, &r.Reply.Message, &r.Created)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to scan replies: %w", storeLogPrefix, err)
	}
	if len(records) == 0 {
		return records, nil
	}

	byID := make(map[int64]*Record, len(records))
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		byID[r.ID] = r
		ids = append(ids, r.ID)
	}

	rows, err = s.pool.Query(ctx,
		`SELECT reply_id, reason, domain, metadata
		 FROM error_reply_details
		 WHERE reply_id = ANY($1)
		 ORDER BY reply_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to list details: %w", storeLogPrefix, err)
	}
	defer rows.Close()

	for rows.Next() {
		var replyID int64
		var d errmodel.ErrorDetailsReply
		if err := rows.Scan(&replyID, &d.Reason, &d.Domain, &d.Metadata); err != nil {
			return nil, fmt.Errorf("%s - failed to scan detail: %w", storeLogPrefix, err)
		}
		if r, ok := byID[replyID]; ok {
			r.Reply.Details = append(r.Reply.Details, d)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s - failed to read details: %w", storeLogPrefix, err)
	}
	return records, nil
}

// Sink returns an ErrorSink that records failed replies under service. Storage failures are
// logged, never returned to the handler.
func (s *Store) Sink(service string) transport.ErrorSink {
	return func(ctx context.Context, subject string, reply *errmodel.ErrorReply) {
		if _, err := s.Record(ctx, subject, service, reply); err != nil {
			slog.Error(fmt.Sprintf("%s - %v", storeLogPrefix, err))
		}
	}
}
