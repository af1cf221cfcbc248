package pipeline

import "fmt"

type Stage string

const (
	StageLoad          Stage = "load"
	StageTranscription Stage = "transcription"
	StageSanitization  Stage = "sanitization"
	StageCallLog       Stage = "call_log"
	StageReport        Stage = "report"
	StageForm          Stage = "form"
	StageQuestionnaire Stage = "questionnaire"
	StagePersist       Stage = "persist"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
)

// StageResult is what every stage reports back to the processor.
type StageResult struct {
	Stage   Stage
	Outcome Outcome
	Err     error
	// Detail is a short human-readable note for logs and audit.
	Detail string
}

func succeeded(s Stage, detail string) StageResult {
	return StageResult{Stage: s, Outcome: OutcomeSuccess, Detail: detail}
}

func partial(s Stage, err error, detail string) StageResult {
	return StageResult{Stage: s, Outcome: OutcomePartial, Err: err, Detail: detail}
}

func failed(s Stage, err error) StageResult {
	return StageResult{Stage: s, Outcome: OutcomeFailure, Err: err}
}

type onFailure int

const (
	abort onFailure = iota
	degrade
)

// policy is the single place that decides what a stage failure means for the run.
// Stages missing from the table abort.
var policy = map[Stage]onFailure{
	StageLoad:          abort,
	StageTranscription: abort,
	StageSanitization:  abort,
	StageCallLog:       abort,
	StageReport:        abort,
	StageForm:          abort,
	StageQuestionnaire: degrade,
	StagePersist:       abort,
}

// Aborts reports whether r stops the run. Partial results never abort.
func (r StageResult) Aborts() bool {
	if r.Outcome != OutcomeFailure {
		return false
	}
	p, ok := policy[r.Stage]
	return !ok || p == abort
}

// Error is returned by Process when a stage aborts the run.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("pipeline: %s: %v", e.Stage, e.Err) }

func (e *Error) Unwrap() error { return e.Err }
