package calls

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"call-insights/internal/callmeta"

	"github.com/google/uuid"
)

// Service owns the call record lifecycle outside the pipeline: creation at upload,
// reads, admin corrections and deletion.
type Service struct {
	repo  Repository
	clock func() time.Time
	newID func() string
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now, newID: uuid.NewString}
}

// CreateInitialRecord stores a processing record holding only filename metadata.
func (s *Service) CreateInitialRecord(ctx context.Context, organisationID string, md callmeta.Metadata) (string, error) {
	if organisationID == "" || md.Filename == "" {
		return "", ErrInvalidArgument
	}
	exists, err := s.repo.ExistsByFilename(ctx, organisationID, md.Filename)
	if err != nil {
		return "", err
	}
	if exists {
		return "", ErrDuplicateFilename
	}

	now := s.clock().UTC()
	r := CallRecord{
		ID:             s.newID(),
		OrganisationID: organisationID,
		Filename:       md.Filename,
		CallType:       string(md.CallType),
		TollFreeDID:    md.TollFreeDID,
		AgentExtension: md.AgentExtension,
		CustomerNumber: md.CustomerNumber,
		CallDate:       md.CallDate,
		CallStartTime:  md.CallStartTime,
		CallID:         md.CallID,
		Status:         StatusProcessing,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return "", err
	}
	return r.ID, nil
}

// FilenameTaken reports whether the organisation already has a record for filename.
func (s *Service) FilenameTaken(ctx context.Context, organisationID, filename string) (bool, error) {
	return s.repo.ExistsByFilename(ctx, organisationID, filename)
}

func (s *Service) Get(ctx context.Context, organisationID, id string) (CallRecord, error) {
	if organisationID == "" || id == "" {
		return CallRecord{}, ErrInvalidArgument
	}
	return s.repo.Get(ctx, organisationID, id)
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]CallRecord, error) {
	return s.repo.List(ctx, q)
}

// Logs returns the newest records with every column.
func (s *Service) Logs(ctx context.Context, organisationID string, limit int) ([]CallRecord, error) {
	return s.repo.List(ctx, ListQuery{OrganisationID: organisationID, Limit: limit})
}

func (s *Service) Columns(ctx context.Context, organisationID string, cols []string, limit int) ([]map[string]any, error) {
	if organisationID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.Columns(ctx, organisationID, cols, limit)
}

// Transcript returns the stored transcript, or ErrNoTranscript when there is none yet.
func (s *Service) Transcript(ctx context.Context, organisationID, id string) (string, error) {
	r, err := s.Get(ctx, organisationID, id)
	if err != nil {
		return "", err
	}
	if r.Transcription == nil || strings.TrimSpace(*r.Transcription) == "" {
		return "", ErrNoTranscript
	}
	return *r.Transcription, nil
}

// FormCorrection is an admin edit of the extracted form fields.
type FormCorrection struct {
	ResponderName   *string `json:"responder_name"`
	CallerName      *string `json:"caller_name"`
	RequestType     *string `json:"request_type"`
	IssueSummary    *string `json:"issue_summary"`
	CallerSentiment *string `json:"caller_sentiment"`
}

func (s *Service) Correct(ctx context.Context, organisationID, id string, c FormCorrection) (CallRecord, error) {
	if c.RequestType != nil && !slices.Contains(RequestTypes, *c.RequestType) {
		return CallRecord{}, fmt.Errorf("%w: request_type %q", ErrInvalidArgument, *c.RequestType)
	}
	if c.CallerSentiment != nil && !slices.Contains(Sentiments, *c.CallerSentiment) {
		return CallRecord{}, fmt.Errorf("%w: caller_sentiment %q", ErrInvalidArgument, *c.CallerSentiment)
	}
	u := CallRecordUpdate{
		ResponderName:   c.ResponderName,
		CallerName:      c.CallerName,
		RequestType:     c.RequestType,
		IssueSummary:    c.IssueSummary,
		CallerSentiment: c.CallerSentiment,
	}
	if u.IsEmpty() {
		return CallRecord{}, fmt.Errorf("%w: nothing to update", ErrInvalidArgument)
	}
	if err := s.repo.ApplyUpdate(ctx, organisationID, id, u); err != nil {
		return CallRecord{}, err
	}
	return s.repo.Get(ctx, organisationID, id)
}

// MarkFailed moves a record to failed with a reason.
func (s *Service) MarkFailed(ctx context.Context, organisationID, id, reason string) error {
	failed := StatusFailed
	return s.repo.ApplyUpdate(ctx, organisationID, id, CallRecordUpdate{Status: &failed, FailureReason: &reason})
}

func (s *Service) Delete(ctx context.Context, organisationID, id string) error {
	return s.repo.Delete(ctx, organisationID, id)
}
