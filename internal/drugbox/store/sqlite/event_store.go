package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store"
)

func (s *Store) ListEvents(ctx context.Context, f store.EventFilter) ([]store.EventRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		where = append(where, "event_type = ?")
		args = append(args, f.Type)
	}
	if f.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}

	q := `
SELECT id, event_type, user_id, rfid_code, fingerprint_id,
       status, message, request_id, event_time_ms
FROM event_logs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY event_time_ms DESC, id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ListEvents: %w", err)
	}
	defer rows.Close()

	var out []store.EventRecord
	for rows.Next() {
		var (
			e         store.EventRecord
			userID    sql.NullInt64
			rfid      sql.NullString
			fp        sql.NullInt64
			requestID sql.NullString
			atMs      int64
		)
		if err := rows.Scan(&e.ID, &e.Type, &userID, &rfid, &fp,
			&e.Status, &e.Message, &requestID, &atMs); err != nil {
			return nil, fmt.Errorf("ListEvents scan: %w", err)
		}
		if userID.Valid {
			v := userID.Int64
			e.UserID = &v
		}
		if fp.Valid {
			v := fp.Int64
			e.FingerprintID = &v
		}
		e.RFIDCode = rfid.String
		e.RequestID = requestID.String
		e.OccurredAt = time.UnixMilli(atMs).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// PruneEventsBefore runs through the writer like every other mutation.
func (s *Store) PruneEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM event_logs WHERE event_time_ms < ?;`, cutoff.UTC().UnixMilli())
		if err != nil {
			return fmt.Errorf("PruneEventsBefore: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}
