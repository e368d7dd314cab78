package runner

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"satcerts/internal/logging"
	"satcerts/internal/lookup"
	"satcerts/internal/records"
	"satcerts/internal/runstore"
)

// recorder mirrors run progress into the run database. Write failures are
// logged and never stop the batch; the CSV export at the end still reflects
// the in-memory results.
type recorder struct {
	store  *runstore.Store
	runID  string
	logger *slog.Logger
}

func newRecorder(store *runstore.Store, runID string, logger *slog.Logger) *recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &recorder{store: store, runID: runID, logger: logger}
}

// beginLookup inserts the in-flight row for one identifier. The returned row
// is usable even when the insert failed.
func (r *recorder) beginLookup(ctx context.Context, position int, identifier records.Identifier) *runstore.Lookup {
	row := &runstore.Lookup{
		LookupID:   uuid.NewString(),
		RunID:      r.runID,
		Position:   position,
		SequenceID: identifier.SequenceID,
		RFC:        identifier.RFC,
		Status:     runstore.LookupStatusRunning,
	}
	if err := r.store.InsertLookup(ctx, row); err != nil {
		r.logger.Warn("failed to record lookup start",
			logging.Error(err),
			logging.String(logging.FieldRFC, identifier.RFC))
	}
	return row
}

// attempt appends one attempt row as the state machine reports it.
func (r *recorder) attempt(ctx context.Context, row *runstore.Lookup, attempt lookup.Attempt) {
	record := &runstore.Attempt{
		LookupID:   row.LookupID,
		Number:     attempt.Number,
		Strategy:   attempt.Strategy,
		Solution:   attempt.Solution,
		ImagePath:  attempt.ImagePath,
		Outcome:    string(attempt.Outcome),
		Detail:     attempt.Detail,
		RecordedAt: attempt.RecordedAt,
	}
	if err := r.store.InsertAttempt(ctx, record); err != nil {
		r.logger.Warn("failed to record attempt",
			logging.Error(err),
			logging.String(logging.FieldRFC, row.RFC),
			logging.Int(logging.FieldAttempt, attempt.Number))
	}
}

// complete stores a lookup's terminal state plus any recovered certificates.
func (r *recorder) complete(ctx context.Context, row *runstore.Lookup, result *lookup.Result) {
	row.Status = string(result.Status)
	row.AttemptCount = len(result.Attempts)
	row.PagePath = result.PagePath
	row.ErrorDetail = result.Detail
	row.CertificateCount = result.CertificateCount()
	if result.Report != nil {
		row.RazonSocial = result.Report.RazonSocial
	}
	finished := result.FinishedAt
	if !finished.IsZero() {
		utc := finished.UTC()
		row.FinishedAt = &utc
	}
	if err := r.store.CompleteLookup(ctx, row); err != nil {
		r.logger.Warn("failed to record lookup result",
			logging.Error(err),
			logging.String(logging.FieldRFC, row.RFC))
	}

	if result.Report == nil || len(result.Report.Certificates) == 0 {
		return
	}
	certs := make([]runstore.Certificate, 0, len(result.Report.Certificates))
	for _, cert := range result.Report.Certificates {
		certs = append(certs, runstore.Certificate{
			LookupID:    row.LookupID,
			Serial:      cert.Serial,
			Status:      cert.Status,
			Kind:        cert.Kind,
			ValidFrom:   cert.ValidFrom,
			ValidTo:     cert.ValidTo,
			DownloadURL: cert.DownloadURL,
		})
	}
	if err := r.store.InsertCertificates(ctx, row.LookupID, certs); err != nil {
		r.logger.Warn("failed to record certificates",
			logging.Error(err),
			logging.String(logging.FieldRFC, row.RFC))
	}
}

// finishRun writes the run row's terminal status and tallies.
func (r *recorder) finishRun(ctx context.Context, record *runstore.RunRecord) {
	if err := r.store.FinishRun(ctx, record); err != nil {
		r.logger.Warn("failed to record run completion", logging.Error(err))
	}
}
