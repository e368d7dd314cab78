package runstore

import (
	"database/sql"
	"fmt"
	"time"
)

const lookupColumns = "id, lookup_id, run_id, position, sequence_id, rfc, status, attempt_count, razon_social, certificate_count, page_path, error_detail, started_at, finished_at"

const attemptColumns = "id, lookup_id, attempt_number, strategy, solution, image_path, outcome, detail, recorded_at"

const runColumns = "run_id, input_path, output_dir, status, total, succeeded, not_found, exhausted, fatal, detail, started_at, finished_at"

func scanLookup(scanner interface{ Scan(dest ...any) error }) (*Lookup, error) {
	var (
		id          int64
		lookupID    string
		runID       string
		position    int
		sequenceID  string
		rfc         string
		status      string
		attempts    int
		razonSocial sql.NullString
		certCount   int
		pagePath    sql.NullString
		errorDetail sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&id, &lookupID, &runID, &position, &sequenceID, &rfc, &status,
		&attempts, &razonSocial, &certCount, &pagePath, &errorDetail,
		&startedRaw, &finishedRaw,
	); err != nil {
		return nil, err
	}

	row := &Lookup{
		ID:               id,
		LookupID:         lookupID,
		RunID:            runID,
		Position:         position,
		SequenceID:       sequenceID,
		RFC:              rfc,
		Status:           status,
		AttemptCount:     attempts,
		RazonSocial:      razonSocial.String,
		CertificateCount: certCount,
		PagePath:         pagePath.String,
		ErrorDetail:      errorDetail.String,
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		row.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			row.FinishedAt = &finished
		}
	}
	return row, nil
}

func scanAttempt(scanner interface{ Scan(dest ...any) error }) (*Attempt, error) {
	var (
		id          int64
		lookupID    string
		number      int
		strategy    sql.NullString
		solution    sql.NullString
		imagePath   sql.NullString
		outcome     string
		detail      sql.NullString
		recordedRaw string
	)
	if err := scanner.Scan(
		&id, &lookupID, &number, &strategy, &solution, &imagePath, &outcome, &detail, &recordedRaw,
	); err != nil {
		return nil, err
	}

	row := &Attempt{
		ID:        id,
		LookupID:  lookupID,
		Number:    number,
		Strategy:  strategy.String,
		Solution:  solution.String,
		ImagePath: imagePath.String,
		Outcome:   outcome,
		Detail:    detail.String,
	}
	if recorded, err := parseTimeString(recordedRaw); err == nil {
		row.RecordedAt = recorded
	}
	return row, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*RunRecord, error) {
	var (
		runID       string
		inputPath   string
		outputDir   string
		status      string
		total       int
		succeeded   int
		notFound    int
		exhausted   int
		fatal       int
		detail      sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&runID, &inputPath, &outputDir, &status, &total, &succeeded,
		&notFound, &exhausted, &fatal, &detail, &startedRaw, &finishedRaw,
	); err != nil {
		return nil, err
	}

	record := &RunRecord{
		RunID:     runID,
		InputPath: inputPath,
		OutputDir: outputDir,
		Status:    status,
		Total:     total,
		Succeeded: succeeded,
		NotFound:  notFound,
		Exhausted: exhausted,
		Fatal:     fatal,
		Detail:    detail.String,
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		record.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			record.FinishedAt = &finished
		}
	}
	return record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	layouts := []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
