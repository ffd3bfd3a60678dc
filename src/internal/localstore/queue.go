package localstore

import (
	"context"
	"fmt"

	"smart-time-tracker/src/internal/models"
)

// Batch is a snapshot of the queue. Through is the sequence number of the
// last record in it; zero for an empty snapshot.
type Batch struct {
	Records []models.LogRecord
	Through int64
}

// Append queues one record.
func (s *Store) Append(ctx context.Context, rec models.LogRecord) error {
	return s.insertRecord(ctx, s.db, &rec)
}

func (s *Store) insertRecord(ctx context.Context, ex execer, rec *models.LogRecord) error {
	if rec.Domain == "" || rec.Duration <= 0 {
		return fmt.Errorf("%w: refusing record domain=%q duration=%v", models.ErrValidation, rec.Domain, rec.Duration)
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO log_queue(domain, start_time, duration, queued_at) VALUES (?, ?, ?, ?)`,
		rec.Domain, ts(rec.StartTime), rec.Duration, ts(s.now()))
	if err != nil {
		return fmt.Errorf("%w: append record: %v", models.ErrLocalStateWrite, err)
	}
	return nil
}

// Snapshot returns every queued record in append order.
func (s *Store) Snapshot(ctx context.Context) (*Batch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq, domain, start_time, duration FROM log_queue ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("%w: read queue: %v", models.ErrLocalStateRead, err)
	}
	defer rows.Close()

	batch := &Batch{}
	for rows.Next() {
		var (
			seq      int64
			rec      models.LogRecord
			startRaw string
		)
		if err := rows.Scan(&seq, &rec.Domain, &startRaw, &rec.Duration); err != nil {
			return nil, fmt.Errorf("%w: scan queue: %v", models.ErrLocalStateRead, err)
		}
		if rec.StartTime, err = parseTS(startRaw); err != nil {
			return nil, fmt.Errorf("%w: parse start_time %q: %v", models.ErrLocalStateRead, startRaw, err)
		}
		batch.Records = append(batch.Records, rec)
		batch.Through = seq
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read queue: %v", models.ErrLocalStateRead, err)
	}
	return batch, nil
}

// ClearThrough removes the records of an acknowledged snapshot. Records
// appended after the snapshot was taken stay queued.
func (s *Store) ClearThrough(ctx context.Context, seq int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM log_queue WHERE seq <= ?`, seq)
	if err != nil {
		return 0, fmt.Errorf("%w: clear queue: %v", models.ErrLocalStateWrite, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM log_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count queue: %v", models.ErrLocalStateRead, err)
	}
	return n, nil
}
