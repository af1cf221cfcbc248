package reporting

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"call-insights/internal/calls"

	"github.com/xuri/excelize/v2"
)

func str(s string) *string { return &s }

func seed(t *testing.T, repo *calls.MemoryRepo, now time.Time) {
	t.Helper()
	rows := []calls.CallRecord{
		{ID: "r1", OrganisationID: "o1", Filename: "a.wav", CallID: "A", CallType: "in", Status: calls.StatusComplete,
			RequestType: str("billing"), CallerSentiment: str("happy"), CallerName: str("Dana"), CreatedAt: now},
		{ID: "r2", OrganisationID: "o1", Filename: "b.wav", CallID: "B", CallType: "external", Status: calls.StatusComplete,
			RequestType: str("billing"), CallerSentiment: str("angry"), CreatedAt: now.Add(time.Minute)},
		{ID: "r3", OrganisationID: "o1", Filename: "c.wav", CallID: "C", CallType: "in", Status: calls.StatusFailed,
			CreatedAt: now.Add(2 * time.Minute)},
		{ID: "r4", OrganisationID: "o1", Filename: "old.wav", CallID: "D", CallType: "in", Status: calls.StatusComplete,
			RequestType: str("billing"), CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "r5", OrganisationID: "o2", Filename: "a.wav", CallID: "E", CallType: "in", Status: calls.StatusComplete,
			RequestType: str("billing"), CreatedAt: now},
	}
	for _, r := range rows {
		if err := repo.Create(context.Background(), r); err != nil {
			t.Fatalf("seed %s: %v", r.ID, err)
		}
	}
}

func TestSummary_CountsWithinRangeAndOrganisation(t *testing.T) {
	repo := calls.NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()
	seed(t, repo, now)
	svc := NewService(CallsSource{Repo: repo, PageSize: 2})

	out, err := svc.Summary(context.Background(), SummaryRequest{
		OrganisationID: "o1",
		Range:          TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalCalls != 3 {
		t.Fatalf("expected 3 calls, got %d", out.TotalCalls)
	}
	if out.ByStatus["complete"] != 2 || out.ByStatus["failed"] != 1 || out.ByStatus["processing"] != 0 {
		t.Fatalf("unexpected status counts: %v", out.ByStatus)
	}
	if out.ByRequestType["billing"] != 2 {
		t.Fatalf("unexpected request types: %v", out.ByRequestType)
	}
	if out.BySentiment["happy"] != 1 || out.BySentiment["angry"] != 1 {
		t.Fatalf("unexpected sentiments: %v", out.BySentiment)
	}
	if out.ByCallType["in"] != 2 || out.ByCallType["external"] != 1 {
		t.Fatalf("unexpected call types: %v", out.ByCallType)
	}
	if out.Unclassified != 1 {
		t.Fatalf("expected 1 unclassified, got %d", out.Unclassified)
	}
}

func TestSummary_RejectsBadRange(t *testing.T) {
	svc := NewService(CallsSource{Repo: calls.NewMemoryRepo()})
	now := time.Now()
	for _, req := range []SummaryRequest{
		{Range: TimeRange{From: now, To: now.Add(time.Hour)}},
		{OrganisationID: "o1", Range: TimeRange{From: now, To: now}},
		{OrganisationID: "o1"},
	} {
		if _, err := svc.Summary(context.Background(), req); err != ErrInvalidRequest {
			t.Fatalf("expected ErrInvalidRequest for %+v, got %v", req, err)
		}
	}
}

func TestCallsSource_PagesPastLimit(t *testing.T) {
	repo := calls.NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()
	for i := 0; i < 7; i++ {
		r := calls.CallRecord{
			ID: fmt.Sprintf("r%d", i), OrganisationID: "o1", Filename: fmt.Sprintf("%d.wav", i),
			Status: calls.StatusProcessing, CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := repo.Create(context.Background(), r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	got, err := CallsSource{Repo: repo, PageSize: 3}.ListCalls(context.Background(), "o1", now, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("expected 7 rows, got %d", len(got))
	}
	if got[0].ID != "r0" || got[6].ID != "r6" {
		t.Fatalf("expected ascending creation order, got %s..%s", got[0].ID, got[6].ID)
	}
}

func TestExportCallLogs_WritesWorkbook(t *testing.T) {
	repo := calls.NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()
	seed(t, repo, now)
	svc := NewService(CallsSource{Repo: repo})

	var buf bytes.Buffer
	n, err := svc.ExportCallLogs(context.Background(), ExportRequest{
		OrganisationID: "o1",
		Range:          TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)},
	}, &buf)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows, got %d", n)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "Call ID" || rows[1][0] != "A" || rows[1][8] != "Dana" {
		t.Fatalf("unexpected content: %v", rows[:2])
	}
}
