package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// BeginRun inserts the run row with RunStatusRunning.
func (s *Store) BeginRun(ctx context.Context, run *RunRecord) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (run_id, input_path, output_dir, status, total, started_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.InputPath, run.OutputDir, run.Status, run.Total, formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun updates the run row with its terminal status and tallies.
func (s *Store) FinishRun(ctx context.Context, run *RunRecord) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.FinishedAt == nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
	}
	_, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, total = ?, succeeded = ?, not_found = ?,
         exhausted = ?, fatal = ?, detail = ?, finished_at = ? WHERE run_id = ?`,
		run.Status, run.Total, run.Succeeded, run.NotFound, run.Exhausted,
		run.Fatal, nullableString(run.Detail), nullableTime(run.FinishedAt), run.RunID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// GetRun returns the run row; a run database holds exactly one.
func (s *Store) GetRun(ctx context.Context) (*RunRecord, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs ORDER BY started_at LIMIT 1`)
	record, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return record, nil
}

// InsertLookup records a lookup as it starts. The row's ID is filled in.
func (s *Store) InsertLookup(ctx context.Context, row *Lookup) error {
	if row == nil {
		return errors.New("lookup is nil")
	}
	if row.StartedAt.IsZero() {
		row.StartedAt = time.Now().UTC()
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO lookups (lookup_id, run_id, position, sequence_id, rfc, status, started_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.LookupID, row.RunID, row.Position, row.SequenceID, row.RFC, row.Status, formatTime(row.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert lookup: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	row.ID = id
	return nil
}

// CompleteLookup stores a lookup's terminal state.
func (s *Store) CompleteLookup(ctx context.Context, row *Lookup) error {
	if row == nil {
		return errors.New("lookup is nil")
	}
	if row.FinishedAt == nil {
		now := time.Now().UTC()
		row.FinishedAt = &now
	}
	_, err := s.execWithRetry(ctx,
		`UPDATE lookups SET status = ?, attempt_count = ?, razon_social = ?,
         certificate_count = ?, page_path = ?, error_detail = ?, finished_at = ?
         WHERE lookup_id = ?`,
		row.Status, row.AttemptCount, nullableString(row.RazonSocial),
		row.CertificateCount, nullableString(row.PagePath), nullableString(row.ErrorDetail),
		nullableTime(row.FinishedAt), row.LookupID,
	)
	if err != nil {
		return fmt.Errorf("complete lookup: %w", err)
	}
	return nil
}

// InsertAttempt appends one attempt row.
func (s *Store) InsertAttempt(ctx context.Context, attempt *Attempt) error {
	if attempt == nil {
		return errors.New("attempt is nil")
	}
	if attempt.RecordedAt.IsZero() {
		attempt.RecordedAt = time.Now().UTC()
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO attempts (lookup_id, attempt_number, strategy, solution, image_path, outcome, detail, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.LookupID, attempt.Number, nullableString(attempt.Strategy),
		nullableString(attempt.Solution), nullableString(attempt.ImagePath),
		attempt.Outcome, nullableString(attempt.Detail), formatTime(attempt.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	attempt.ID = id
	return nil
}

// InsertCertificates stores the recovered certificate rows for a lookup.
func (s *Store) InsertCertificates(ctx context.Context, lookupID string, certs []Certificate) error {
	if len(certs) == 0 {
		return nil
	}
	ctx = ensureContext(ctx)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin certificates tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, cert := range certs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO certificates (lookup_id, serial, status, kind, valid_from, valid_to, download_url)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			lookupID, cert.Serial, nullableString(cert.Status), nullableString(cert.Kind),
			nullableString(cert.ValidFrom), nullableString(cert.ValidTo), nullableString(cert.DownloadURL),
		); err != nil {
			return fmt.Errorf("insert certificate: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit certificates: %w", err)
	}
	return nil
}

// ListLookups returns every lookup in input order.
func (s *Store) ListLookups(ctx context.Context) ([]*Lookup, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+lookupColumns+` FROM lookups ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list lookups: %w", err)
	}
	defer rows.Close()

	var out []*Lookup
	for rows.Next() {
		row, err := scanLookup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lookup: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lookups: %w", err)
	}
	return out, nil
}

// ListAttempts returns a lookup's attempts in order.
func (s *Store) ListAttempts(ctx context.Context, lookupID string) ([]*Attempt, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+attemptColumns+` FROM attempts WHERE lookup_id = ? ORDER BY attempt_number`, lookupID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []*Attempt
	for rows.Next() {
		row, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}

// ListCertificates returns a lookup's certificate rows in insertion order.
func (s *Store) ListCertificates(ctx context.Context, lookupID string) ([]*Certificate, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, lookup_id, serial, status, kind, valid_from, valid_to, download_url
         FROM certificates WHERE lookup_id = ? ORDER BY id`, lookupID)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	var out []*Certificate
	for rows.Next() {
		var (
			cert     Certificate
			status   sql.NullString
			kind     sql.NullString
			from     sql.NullString
			to       sql.NullString
			download sql.NullString
		)
		if err := rows.Scan(&cert.ID, &cert.LookupID, &cert.Serial, &status, &kind, &from, &to, &download); err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		cert.Status = status.String
		cert.Kind = kind.String
		cert.ValidFrom = from.String
		cert.ValidTo = to.String
		cert.DownloadURL = download.String
		out = append(out, &cert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}
	return out, nil
}
