// Package pipeline turns one uploaded call recording into a completed call record:
// transcription, sanitization, then four concurrent extraction stages and a single
// final write.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"call-insights/internal/agents"
	"call-insights/internal/callmeta"
	"call-insights/internal/calls"
	"call-insights/internal/questions"
	"call-insights/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Job identifies one pre-created record and the blob holding its audio.
type Job struct {
	Key            string
	RecordID       string
	OrganisationID string
}

type Processor struct {
	d Deps
}

func NewProcessor(d Deps) *Processor {
	d.withDefaults()
	return &Processor{d: d}
}

// extraction collects the fan-out results. Each stage writes only its own fields.
type extraction struct {
	callLog string
	report  string
	form    agents.Form
	answers []questions.Answer

	results [4]StageResult
}

// Process runs the pipeline for job. On an aborting failure the record is moved to
// failed and a *Error naming the stage is returned.
func (p *Processor) Process(ctx context.Context, job Job) error {
	ctx = logger.Enrich(ctx, "record_id", job.RecordID, "organisation_id", job.OrganisationID)
	start := p.d.Clock()

	rec, res := p.load(ctx, job)
	if err := p.check(ctx, job, res); err != nil {
		return err
	}
	ctx = logger.Enrich(ctx, "call_id", rec.CallID, "filename", rec.Filename)

	transcript, res := p.transcribe(ctx, job)
	if err := p.check(ctx, job, res); err != nil {
		return err
	}

	sanitized, res := p.sanitize(ctx, transcript)
	if err := p.check(ctx, job, res); err != nil {
		return err
	}

	ex := p.extract(ctx, job, sanitized)
	for _, r := range ex.ordered() {
		if err := p.check(ctx, job, r); err != nil {
			return err
		}
	}

	complete := calls.StatusComplete
	u := calls.CallRecordUpdate{
		Status:          &complete,
		Transcription:   &sanitized,
		ReportGenerated: &ex.report,
		CallLog:         &ex.callLog,
		ResponderName:   &ex.form.ResponderName,
		CallerName:      &ex.form.CallerName,
		RequestType:     &ex.form.RequestType,
		IssueSummary:    &ex.form.IssueSummary,
		CallerSentiment: &ex.form.CallerSentiment,
	}
	if err := p.d.Finalizer.Finalize(ctx, job.OrganisationID, job.RecordID, u, ex.answers); err != nil {
		return p.check(ctx, job, failed(StagePersist, err))
	}
	p.auditUpdated(ctx, job, u, len(ex.answers))

	logger.From(ctx).Info("call processed",
		"answers", len(ex.answers),
		"duration_ms", p.d.Clock().Sub(start).Milliseconds(),
	)
	return nil
}

func (p *Processor) load(ctx context.Context, job Job) (calls.CallRecord, StageResult) {
	rec, err := p.d.Records.Get(ctx, job.OrganisationID, job.RecordID)
	if err != nil {
		return calls.CallRecord{}, failed(StageLoad, err)
	}
	// The stored metadata came from the same filename; a mismatch means a corrupt row.
	md, err := callmeta.Parse(rec.Filename)
	if err != nil {
		return calls.CallRecord{}, failed(StageLoad, err)
	}
	if md.CallID != rec.CallID || string(md.CallType) != rec.CallType {
		return calls.CallRecord{}, failed(StageLoad, fmt.Errorf("stored metadata does not match filename %q", rec.Filename))
	}
	return rec, succeeded(StageLoad, "")
}

func (p *Processor) transcribe(ctx context.Context, job Job) (string, StageResult) {
	res, err := p.d.Transcriber.Transcribe(ctx, job.Key, p.d.TranscriptionPrompt)
	if err != nil {
		return "", failed(StageTranscription, err)
	}
	detail := fmt.Sprintf("%d chunk(s)", res.Chunks)
	if res.Partial() {
		return res.Text, partial(StageTranscription, nil, fmt.Sprintf("%s, %d failed", detail, res.FailedChunks))
	}
	return res.Text, succeeded(StageTranscription, detail)
}

func (p *Processor) sanitize(ctx context.Context, transcript string) (string, StageResult) {
	out, err := p.d.Sanitizer.Sanitize(ctx, transcript)
	if err != nil {
		return "", failed(StageSanitization, err)
	}
	return out, succeeded(StageSanitization, "")
}

// extract runs the four extraction stages concurrently. An aborting failure cancels
// the siblings.
func (p *Processor) extract(ctx context.Context, job Job, transcript string) *extraction {
	ex := &extraction{}
	g, gctx := errgroup.WithContext(ctx)

	run := func(i int, fn func(context.Context) StageResult) {
		g.Go(func() error {
			r := fn(gctx)
			ex.results[i] = r
			if r.Aborts() {
				return r.Err
			}
			return nil
		})
	}

	run(0, func(ctx context.Context) StageResult {
		out, err := p.d.CallLog.Run(ctx, transcript)
		if err != nil {
			return failed(StageCallLog, err)
		}
		ex.callLog = out
		return succeeded(StageCallLog, "")
	})
	run(1, func(ctx context.Context) StageResult {
		out, err := p.d.Report.Run(ctx, transcript)
		if err != nil {
			return failed(StageReport, err)
		}
		ex.report = out
		return succeeded(StageReport, "")
	})
	run(2, func(ctx context.Context) StageResult {
		f, err := p.d.Form.Run(ctx, transcript)
		if err != nil {
			return failed(StageForm, err)
		}
		ex.form = f
		return succeeded(StageForm, "")
	})
	run(3, func(ctx context.Context) StageResult {
		answers, r := p.questionnaire(ctx, job, transcript)
		ex.answers = answers
		return r
	})

	_ = g.Wait()
	return ex
}

// ordered puts the root cause first: a stage cancelled because a sibling failed
// reports context.Canceled and should not be blamed.
func (ex *extraction) ordered() []StageResult {
	out := make([]StageResult, 0, len(ex.results))
	var cancelled []StageResult
	for _, r := range ex.results {
		if r.Outcome == OutcomeFailure && errors.Is(r.Err, context.Canceled) {
			cancelled = append(cancelled, r)
			continue
		}
		out = append(out, r)
	}
	return append(out, cancelled...)
}

func (p *Processor) questionnaire(ctx context.Context, job Job, transcript string) ([]questions.Answer, StageResult) {
	log := logger.From(ctx)

	qs, err := p.d.Questions.ActiveCommon(ctx, job.OrganisationID)
	if err != nil {
		return nil, failed(StageQuestionnaire, err)
	}
	if len(qs) == 0 {
		return nil, succeeded(StageQuestionnaire, "no active questions")
	}

	texts := make([]string, len(qs))
	for i, q := range qs {
		texts[i] = q.QuestionText
	}
	raw, err := p.d.Questionnaire.Run(ctx, transcript, texts)
	if err != nil {
		return nil, failed(StageQuestionnaire, err)
	}

	parsed := agents.ParseAnswers(ctx, raw)
	answers := p.reconcile(job.RecordID, qs, parsed)
	if dropped := len(parsed) - len(answers); dropped > 0 {
		log.Debug("questionnaire answers dropped", "dropped", dropped, "matched", len(answers))
	}
	detail := fmt.Sprintf("%d of %d answered", len(answers), len(qs))
	if len(parsed) == 0 {
		return nil, partial(StageQuestionnaire, nil, "no answers parsed")
	}
	return answers, succeeded(StageQuestionnaire, detail)
}

// reconcile keeps answers whose question text exactly matches a known question.
// The first answer per question wins.
func (p *Processor) reconcile(recordID string, qs []questions.Question, parsed []agents.ParsedAnswer) []questions.Answer {
	byText := make(map[string]string, len(qs))
	for _, q := range qs {
		byText[q.QuestionText] = q.ID
	}
	now := p.d.Clock().UTC()
	seen := map[string]bool{}
	var out []questions.Answer
	for _, a := range parsed {
		id, ok := byText[a.QuestionText]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, questions.Answer{
			ID:           p.d.NewID(),
			CallRecordID: recordID,
			QuestionID:   id,
			AnswerText:   strings.TrimSpace(a.AnswerText),
			CreatedAt:    now,
		})
	}
	return out
}

// check audits r and, when the policy says so, fails the run. It is the single place
// a stage failure is logged.
func (p *Processor) check(ctx context.Context, job Job, r StageResult) error {
	log := logger.From(ctx).With("stage", string(r.Stage))
	if !r.Aborts() {
		switch r.Outcome {
		case OutcomePartial:
			log.Warn("stage degraded", "detail", r.Detail)
		case OutcomeFailure:
			log.Warn("stage degraded", "err", r.Err)
		}
		p.audit(ctx, job, r, false)
		return nil
	}

	log.Error("call processing failed", "err", r.Err)
	p.audit(ctx, job, r, true)

	// Best effort; the job context may already be cancelled on shutdown.
	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	reason := fmt.Sprintf("%s: %v", r.Stage, r.Err)
	if err := p.d.Records.MarkFailed(mctx, job.OrganisationID, job.RecordID, reason); err != nil {
		log.Warn("mark record failed", "err", err)
	}
	return &Error{Stage: r.Stage, Err: r.Err}
}

func (p *Processor) audit(ctx context.Context, job Job, r StageResult, abortRun bool) {
	if p.d.Audit == nil {
		return
	}
	msg := r.Detail
	if r.Err != nil {
		msg = r.Err.Error()
	}
	if err := p.d.Audit.LogStage(context.WithoutCancel(ctx), job.OrganisationID, job.RecordID, string(r.Stage), abortRun, msg); err != nil {
		logger.From(ctx).Warn("audit write failed", "err", err)
	}
}

func (p *Processor) auditUpdated(ctx context.Context, job Job, u calls.CallRecordUpdate, answers int) {
	if p.d.Audit == nil {
		return
	}
	if err := p.d.Audit.LogRecordUpdated(ctx, job.OrganisationID, job.RecordID, u.Columns(), answers); err != nil {
		logger.From(ctx).Warn("audit write failed", "err", err)
	}
}
