package runstore

import "time"

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusAborted   = "aborted"
)

// LookupStatusRunning marks a lookup row between insert and completion. The
// terminal statuses come from the lookup package unchanged.
const LookupStatusRunning = "running"

// RunRecord is the single row describing a run.
type RunRecord struct {
	RunID      string
	InputPath  string
	OutputDir  string
	Status     string
	Total      int
	Succeeded  int
	NotFound   int
	Exhausted  int
	Fatal      int
	Detail     string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Lookup is the persisted record of one identifier's lookup. Position is
// the identifier's zero-based place in the input file.
type Lookup struct {
	ID               int64
	LookupID         string
	RunID            string
	Position         int
	SequenceID       string
	RFC              string
	Status           string
	AttemptCount     int
	RazonSocial      string
	CertificateCount int
	PagePath         string
	ErrorDetail      string
	StartedAt        time.Time
	FinishedAt       *time.Time
}

// Attempt is one persisted CAPTCHA attempt.
type Attempt struct {
	ID         int64
	LookupID   string
	Number     int
	Strategy   string
	Solution   string
	ImagePath  string
	Outcome    string
	Detail     string
	RecordedAt time.Time
}

// Certificate is one recovered certificate row.
type Certificate struct {
	ID          int64
	LookupID    string
	Serial      string
	Status      string
	Kind        string
	ValidFrom   string
	ValidTo     string
	DownloadURL string
}
