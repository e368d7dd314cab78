package lookup

// Stage is where in a round an outcome was produced. The same outcome can
// demand different moves: a transport failure while fetching the image
// wastes the round but the next challenge is intact, while a transport
// failure after sending the form leaves the portal's verdict unknown.
type Stage string

const (
	StageFetch  Stage = "fetch"
	StageSolve  Stage = "solve"
	StageSubmit Stage = "submit"
)

// action is the machine's next move after recording an attempt.
type action int

const (
	// actionContinue moves to the next attempt while budget remains.
	actionContinue action = iota
	// actionSuccess terminates the lookup with StatusSuccess.
	actionSuccess
	// actionNotFound terminates the lookup with StatusIdentifierNotFound.
	actionNotFound
	// actionFatal terminates the lookup with StatusFatalError.
	actionFatal
)

// decide maps a recorded outcome to the machine's next move. It is pure;
// the attempt budget is applied by the caller.
func decide(outcome Outcome, stage Stage) action {
	switch outcome {
	case OutcomeAccepted:
		return actionSuccess
	case OutcomeUnknownIdentifier:
		return actionNotFound
	case OutcomeRejectedWrongCaptcha, OutcomeSolverFailed:
		return actionContinue
	case OutcomeTransportError:
		if stage == StageSubmit {
			return actionFatal
		}
		return actionContinue
	default:
		return actionFatal
	}
}
