package reporting

import (
	"context"
	"errors"
	"fmt"
	"io"

	"call-insights/internal/calls"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Call Logs"

var exportHeader = []string{
	"Call ID", "Filename", "Call Type", "Call Date", "Start Time", "Customer Number",
	"Status", "Responder", "Caller", "Request Type", "Sentiment", "Issue Summary", "Call Log",
}

// ExportCallLogs writes one row per record in the range to an xlsx workbook and
// returns the number of rows written.
func (s *Service) ExportCallLogs(ctx context.Context, req ExportRequest, w io.Writer) (int, error) {
	if req.OrganisationID == "" || !validRange(req.Range) {
		return 0, ErrInvalidRequest
	}
	if s.src == nil {
		return 0, errors.New("reporting: source not configured")
	}
	rows, err := s.src.ListCalls(ctx, req.OrganisationID, req.Range.From, req.Range.To)
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return 0, fmt.Errorf("reporting: export: %w", err)
	}

	if err := setRow(f, 1, toAny(exportHeader)); err != nil {
		return 0, err
	}
	for i, r := range rows {
		if err := setRow(f, i+2, exportRow(r)); err != nil {
			return 0, err
		}
	}
	if err := f.SetColWidth(exportSheet, "L", "M", 60); err != nil {
		return 0, fmt.Errorf("reporting: export: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return 0, fmt.Errorf("reporting: write workbook: %w", err)
	}
	return len(rows), nil
}

func setRow(f *excelize.File, n int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return fmt.Errorf("reporting: export: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
		return fmt.Errorf("reporting: export row %d: %w", n, err)
	}
	return nil
}

func exportRow(r calls.CallRecord) []any {
	return []any{
		r.CallID, r.Filename, r.CallType, r.CallDate, r.CallStartTime, r.CustomerNumber,
		string(r.Status), deref(r.ResponderName), deref(r.CallerName), deref(r.RequestType),
		deref(r.CallerSentiment), deref(r.IssueSummary), deref(r.CallLog),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
