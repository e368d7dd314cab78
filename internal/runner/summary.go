package runner

import (
	"time"

	"satcerts/internal/lookup"
)

// Summary tallies a finished batch.
type Summary struct {
	RunID  string
	RunDir string

	Total   int
	Skipped int

	Succeeded int
	NotFound  int
	Exhausted int
	Fatal     int

	Aborted     bool
	AbortReason string

	Started  time.Time
	Duration time.Duration

	ResultsCSV      string
	CertificatesCSV string
}

// Completed returns how many identifiers reached a terminal status.
func (s *Summary) Completed() int {
	return s.Succeeded + s.NotFound + s.Exhausted + s.Fatal
}

// Failed returns how many identifiers ended without a portal answer.
func (s *Summary) Failed() int {
	return s.Exhausted + s.Fatal
}

func (s *Summary) tally(status lookup.Status) {
	switch status {
	case lookup.StatusSuccess:
		s.Succeeded++
	case lookup.StatusIdentifierNotFound:
		s.NotFound++
	case lookup.StatusExhaustedRetries:
		s.Exhausted++
	case lookup.StatusFatalError:
		s.Fatal++
	}
}
