package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"call-insights/internal/agents"
	"call-insights/internal/audit"
	"call-insights/internal/callmeta"
	"call-insights/internal/calls"
	"call-insights/internal/questions"
	"call-insights/internal/transcription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFilename = "in-8005551234-9165551234-20240315-143022-CALL99.wav"

type fakeTranscriber struct {
	res transcription.Result
	err error
}

func (f fakeTranscriber) Transcribe(ctx context.Context, key, prompt string) (transcription.Result, error) {
	return f.res, f.err
}

type sanitizerFunc func(ctx context.Context, s string) (string, error)

func (f sanitizerFunc) Sanitize(ctx context.Context, s string) (string, error) { return f(ctx, s) }

type textAgent struct {
	out   string
	err   error
	calls int32
	block bool
}

func (a *textAgent) Run(ctx context.Context, transcript string) (string, error) {
	atomic.AddInt32(&a.calls, 1)
	if a.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return a.out, a.err
}

type formAgent struct {
	form agents.Form
	err  error
}

func (a formAgent) Run(ctx context.Context, transcript string) (agents.Form, error) {
	return a.form, a.err
}

type questionnaireAgent struct {
	raw   string
	err   error
	calls int32
}

func (a *questionnaireAgent) Run(ctx context.Context, transcript string, qs []string) (string, error) {
	atomic.AddInt32(&a.calls, 1)
	return a.raw, a.err
}

type countingFinalizer struct {
	next  Finalizer
	calls int32
}

func (f *countingFinalizer) Finalize(ctx context.Context, org, id string, u calls.CallRecordUpdate, answers []questions.Answer) error {
	atomic.AddInt32(&f.calls, 1)
	return f.next.Finalize(ctx, org, id, u, answers)
}

var validForm = agents.Form{
	ResponderName:   "Sam",
	CallerName:      "Dana",
	RequestType:     "technical support",
	IssueSummary:    "Internet down since morning; fixed with a router restart.",
	CallerSentiment: "frustrated",
}

type harness struct {
	deps      Deps
	callsRepo *calls.MemoryRepo
	callsSvc  *calls.Service
	qRepo     *questions.MemoryRepo
	auditRepo *audit.MemoryRepo
	final     *countingFinalizer
	qAgent    *questionnaireAgent
	job       Job
	questions []questions.Question
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	h := &harness{
		callsRepo: calls.NewMemoryRepo(),
		qRepo:     questions.NewMemoryRepo(),
		auditRepo: audit.NewMemoryRepo(),
		qAgent:    &questionnaireAgent{},
	}
	h.callsSvc = calls.NewService(h.callsRepo)
	qSvc := questions.NewService(h.qRepo)

	for _, text := range []string{"Was the issue resolved?", "Did the caller mention a competitor?"} {
		q, err := qSvc.Create(ctx, "org1", text, true)
		require.NoError(t, err)
		h.questions = append(h.questions, q)
	}

	md, err := callmeta.Parse(testFilename)
	require.NoError(t, err)
	id, err := h.callsSvc.CreateInitialRecord(ctx, "org1", md)
	require.NoError(t, err)
	h.job = Job{Key: "org1/" + testFilename, RecordID: id, OrganisationID: "org1"}

	h.final = &countingFinalizer{next: RepoFinalizer{Calls: h.callsRepo, Answers: h.qRepo}}
	h.deps = Deps{
		Records:       h.callsSvc,
		Transcriber:   fakeTranscriber{res: transcription.Result{Text: "raw transcript", Chunks: 1}},
		Sanitizer:     sanitizerFunc(func(ctx context.Context, s string) (string, error) { return "clean " + s, nil }),
		CallLog:       &textAgent{out: "call log"},
		Report:        &textAgent{out: "report"},
		Form:          formAgent{form: validForm},
		Questionnaire: h.qAgent,
		Questions:     qSvc,
		Finalizer:     h.final,
		Audit:         audit.NewService(h.auditRepo),
	}
	return h
}

func (h *harness) record(t *testing.T) calls.CallRecord {
	t.Helper()
	r, err := h.callsRepo.Get(context.Background(), "org1", h.job.RecordID)
	require.NoError(t, err)
	return r
}

func TestProcess_CompletesRecordWithAnswers(t *testing.T) {
	h := newHarness(t)
	h.qAgent.raw = "```json\n" + `{"answers":[
		{"question_text":"Was the issue resolved?","answer_text":" Yes "},
		{"question_text":"Unknown question?","answer_text":"dropped"}
	]}` + "\n```"

	require.NoError(t, NewProcessor(h.deps).Process(context.Background(), h.job))

	r := h.record(t)
	assert.Equal(t, calls.StatusComplete, r.Status)
	assert.Equal(t, "clean raw transcript", *r.Transcription)
	assert.Equal(t, "call log", *r.CallLog)
	assert.Equal(t, "report", *r.ReportGenerated)
	assert.Equal(t, "technical support", *r.RequestType)
	assert.Equal(t, "frustrated", *r.CallerSentiment)
	assert.Equal(t, 1, h.callsRepo.Updates(), "record must be written exactly once")

	answers, err := h.qRepo.AnswersForCall(context.Background(), "org1", h.job.RecordID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "Was the issue resolved?", answers[0].QuestionText)
	assert.Equal(t, "Yes", answers[0].AnswerText)

	assert.Len(t, h.auditRepo.OfType(audit.EventTypeRecordUpdated), 1)
	assert.Empty(t, h.auditRepo.OfType(audit.EventTypeStageFailed))
}

func TestProcess_MissingFormStopsBeforeFinalUpdate(t *testing.T) {
	h := newHarness(t)
	h.deps.Form = formAgent{err: agents.ErrNoStructuredOutput}

	err := NewProcessor(h.deps).Process(context.Background(), h.job)
	require.Error(t, err)
	assert.ErrorIs(t, err, agents.ErrNoStructuredOutput)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, StageForm, perr.Stage)

	assert.Zero(t, h.final.calls, "no completion update may be attempted")
	r := h.record(t)
	assert.Equal(t, calls.StatusFailed, r.Status)
	assert.Nil(t, r.Transcription)
	require.NotNil(t, r.FailureReason)
	assert.Contains(t, *r.FailureReason, "form")

	failedEvents := h.auditRepo.OfType(audit.EventTypeStageFailed)
	require.Len(t, failedEvents, 1)
	assert.Equal(t, "form", failedEvents[0].Stage)
}

func TestProcess_MalformedQuestionnaireStillCompletes(t *testing.T) {
	h := newHarness(t)
	h.qAgent.raw = `{"answers": [ {"question_text": "Was the issue`

	require.NoError(t, NewProcessor(h.deps).Process(context.Background(), h.job))

	assert.Equal(t, calls.StatusComplete, h.record(t).Status)
	answers, err := h.qRepo.AnswersForCall(context.Background(), "org1", h.job.RecordID)
	require.NoError(t, err)
	assert.Empty(t, answers)
}

func TestProcess_QuestionnaireFailureDegrades(t *testing.T) {
	h := newHarness(t)
	h.qAgent.err = errors.New("model down")

	require.NoError(t, NewProcessor(h.deps).Process(context.Background(), h.job))
	assert.Equal(t, calls.StatusComplete, h.record(t).Status)
}

func TestProcess_NoQuestionsSkipsModel(t *testing.T) {
	h := newHarness(t)
	for _, q := range h.questions {
		require.NoError(t, h.qRepo.Delete(context.Background(), "org1", q.ID))
	}
	require.NoError(t, NewProcessor(h.deps).Process(context.Background(), h.job))
	assert.Zero(t, h.qAgent.calls)
}

func TestProcess_AbortingStages(t *testing.T) {
	cases := []struct {
		name  string
		stage Stage
		set   func(h *harness)
	}{
		{"transcription", StageTranscription, func(h *harness) {
			h.deps.Transcriber = fakeTranscriber{err: transcription.ErrAllChunksFailed}
		}},
		{"sanitization", StageSanitization, func(h *harness) {
			h.deps.Sanitizer = sanitizerFunc(func(context.Context, string) (string, error) { return "", errors.New("redaction failed") })
		}},
		{"report", StageReport, func(h *harness) {
			h.deps.Report = &textAgent{err: errors.New("model down")}
		}},
		{"call log", StageCallLog, func(h *harness) {
			h.deps.CallLog = &textAgent{err: errors.New("model down")}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			tc.set(h)
			err := NewProcessor(h.deps).Process(context.Background(), h.job)

			var perr *Error
			require.True(t, errors.As(err, &perr), "got %v", err)
			assert.Equal(t, tc.stage, perr.Stage)
			assert.Zero(t, h.final.calls)
			assert.Equal(t, calls.StatusFailed, h.record(t).Status)
		})
	}
}

func TestProcess_FailureCancelsSiblingsAndBlamesRootCause(t *testing.T) {
	h := newHarness(t)
	h.deps.CallLog = &textAgent{block: true}
	h.deps.Form = formAgent{err: agents.ErrNoStructuredOutput}

	done := make(chan error, 1)
	go func() { done <- NewProcessor(h.deps).Process(context.Background(), h.job) }()

	select {
	case err := <-done:
		var perr *Error
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, StageForm, perr.Stage)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked sibling was not cancelled")
	}
}

func TestProcess_PartialTranscriptContinues(t *testing.T) {
	h := newHarness(t)
	h.deps.Transcriber = fakeTranscriber{res: transcription.Result{Text: "a\n\nc", Chunks: 3, FailedChunks: 1}}

	require.NoError(t, NewProcessor(h.deps).Process(context.Background(), h.job))
	assert.Equal(t, calls.StatusComplete, h.record(t).Status)
}

func TestProcess_RejectsInconsistentStoredMetadata(t *testing.T) {
	h := newHarness(t)
	r := h.record(t)
	r.ID = "corrupt"
	r.Filename = "not-a-valid-name.wav"
	require.NoError(t, h.callsRepo.Create(context.Background(), r))

	job := h.job
	job.RecordID = "corrupt"
	err := NewProcessor(h.deps).Process(context.Background(), job)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, StageLoad, perr.Stage)
	assert.ErrorIs(t, err, callmeta.ErrInvalidFilename)
}

func TestPolicy(t *testing.T) {
	assert.True(t, failed(StageForm, errors.New("x")).Aborts())
	assert.False(t, failed(StageQuestionnaire, errors.New("x")).Aborts())
	assert.False(t, partial(StageTranscription, nil, "1 failed").Aborts())
	assert.True(t, failed("unknown", errors.New("x")).Aborts())
	assert.False(t, succeeded(StageReport, "").Aborts())
}
