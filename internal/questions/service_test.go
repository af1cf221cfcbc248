package questions

import (
	"context"
	"errors"
	"testing"
)

func TestCreate_TrimsAndDefaultsActive(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	q, err := svc.Create(context.Background(), "org1", "  Was the issue resolved?  ", true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if q.QuestionText != "Was the issue resolved?" || !q.IsActive || !q.IsCommon {
		t.Fatalf("unexpected question %+v", q)
	}
	if _, err := svc.Create(context.Background(), "org1", "   ", true); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for blank text")
	}
}

func TestActiveCommon_ExcludesInactiveAndNonCommon(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepo())
	keep, _ := svc.Create(ctx, "org1", "Q1?", true)
	off, _ := svc.Create(ctx, "org1", "Q2?", true)
	_, _ = svc.Create(ctx, "org1", "Q3?", false)
	_, _ = svc.Create(ctx, "org2", "Q4?", true)

	inactive := false
	if _, err := svc.Update(ctx, "org1", off.ID, QuestionUpdate{IsActive: &inactive}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := svc.ActiveCommon(ctx, "org1")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(got) != 1 || got[0].ID != keep.ID {
		t.Fatalf("unexpected active set %+v", got)
	}
}

func TestUpdateAndDelete_AreOrganisationScoped(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepo())
	q, _ := svc.Create(ctx, "org1", "Q1?", true)

	text := "Q1 updated?"
	if _, err := svc.Update(ctx, "org2", q.ID, QuestionUpdate{QuestionText: &text}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, "org2", q.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, "org1", q.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestAnswersForCall_JoinsQuestionText(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	svc := NewService(repo)
	q, _ := svc.Create(ctx, "org1", "Was a refund offered?", true)

	if err := repo.InsertAnswers(ctx, []Answer{svc.NewAnswer("call1", q.ID, "No")}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.InsertAnswers(ctx, []Answer{svc.NewAnswer("call1", "ghost", "x")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("answers for unknown questions must be rejected")
	}

	got, err := svc.AnswersForCall(ctx, "org1", "call1")
	if err != nil {
		t.Fatalf("answers: %v", err)
	}
	if len(got) != 1 || got[0].QuestionText != "Was a refund offered?" || got[0].AnswerText != "No" {
		t.Fatalf("unexpected answers %+v", got)
	}
	if other, _ := svc.AnswersForCall(ctx, "org2", "call1"); len(other) != 0 {
		t.Fatalf("answers must not leak across organisations")
	}
}
