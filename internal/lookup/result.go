package lookup

import (
	"time"

	"satcerts/internal/portal"
	"satcerts/internal/records"
)

// Outcome classifies one CAPTCHA attempt.
type Outcome string

const (
	// OutcomeAccepted means the portal accepted the solution.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeRejectedWrongCaptcha means the portal rejected the solution.
	OutcomeRejectedWrongCaptcha Outcome = "rejected_wrong_captcha"
	// OutcomeSolverFailed means the vision model produced no usable candidate.
	OutcomeSolverFailed Outcome = "solver_failed"
	// OutcomeTransportError means the portal could not be reached or gave no
	// recognizable response.
	OutcomeTransportError Outcome = "transport_error"
	// OutcomeUnknownIdentifier means the portal does not know the RFC.
	OutcomeUnknownIdentifier Outcome = "unknown_identifier"
)

// Status is the terminal state of one identifier's lookup.
type Status string

const (
	// StatusSuccess means a certificate report was recovered.
	StatusSuccess Status = "success"
	// StatusExhaustedRetries means the attempt budget ran out.
	StatusExhaustedRetries Status = "exhausted_retries"
	// StatusIdentifierNotFound means the portal rejected the RFC itself.
	StatusIdentifierNotFound Status = "identifier_not_found"
	// StatusFatalError means the lookup could not run to a portal verdict.
	StatusFatalError Status = "fatal_error"
)

// Attempt records one fetch/solve/submit round.
type Attempt struct {
	Number     int
	Strategy   string
	Solution   string
	ImagePath  string
	Outcome    Outcome
	Detail     string
	RecordedAt time.Time
}

// Result is the terminal record for one identifier.
type Result struct {
	Identifier records.Identifier
	Status     Status
	Attempts   []Attempt
	// Report is set exactly when Status is StatusSuccess.
	Report *portal.CertificateReport
	// PagePath points at the saved results page, when one was captured.
	PagePath   string
	Detail     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded reports whether the lookup recovered a certificate report.
func (r *Result) Succeeded() bool {
	return r.Status == StatusSuccess
}

// CertificateCount returns the number of recovered certificates.
func (r *Result) CertificateCount() int {
	if r.Report == nil {
		return 0
	}
	return len(r.Report.Certificates)
}
