package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"call-insights/internal/callmeta"
	"call-insights/internal/calls"
	"call-insights/internal/pipeline"
	"call-insights/internal/questions"
	"call-insights/pkg/logger"

	"github.com/gin-gonic/gin"
)

// BlobKey is where an organisation's recording is stored.
func BlobKey(organisationID, filename string) string {
	return organisationID + "/" + filename
}

var contentTypes = map[string]string{
	".wav": "audio/wav",
	".mp3": "audio/mpeg",
}

// Upload accepts a multipart "file", creates the initial record and starts processing.
// RBAC: agent, admin or super_admin.
func (h Handlers) Upload(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "multipart field \"file\" required")
		return
	}
	filename := path.Base(filepath.ToSlash(fh.Filename))
	contentType, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		writeError(c, errUnsupportedExtension)
		return
	}
	md, err := callmeta.Parse(filename)
	if err != nil {
		writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	taken, err := h.Calls.FilenameTaken(ctx, id.OrganisationID, md.Filename)
	if err != nil {
		writeError(c, err)
		return
	}
	if taken {
		writeError(c, calls.ErrDuplicateFilename)
		return
	}

	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	if fh.Size > limit {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		writeError(c, fmt.Errorf("read upload: %w", err))
		return
	}
	if len(data) == 0 {
		badRequest(c, "empty file")
		return
	}

	// The record is created first so the unique filename constraint decides a race
	// before any bytes are written. Only the winner stores the blob.
	recordID, err := h.Calls.CreateInitialRecord(ctx, id.OrganisationID, md)
	if err != nil {
		writeError(c, err)
		return
	}
	key := BlobKey(id.OrganisationID, md.Filename)
	if err := h.Blobs.Put(ctx, key, data, contentType); err != nil {
		if derr := h.Calls.Delete(ctx, id.OrganisationID, recordID); derr != nil {
			logger.FromGin(c).Warn("delete record for failed upload", "record_id", recordID, "err", derr)
		}
		writeError(c, fmt.Errorf("store upload: %w", err))
		return
	}

	h.Jobs.Dispatch(ctx, pipeline.Job{Key: key, RecordID: recordID, OrganisationID: id.OrganisationID})
	logger.FromGin(c).Info("call uploaded", "record_id", recordID, "filename", md.Filename, "bytes", len(data))
	c.JSON(http.StatusAccepted, gin.H{"id": recordID, "status": calls.StatusProcessing})
}

type listParams struct {
	Status          string `form:"status"`
	CallType        string `form:"call_type"`
	RequestType     string `form:"request_type"`
	CallerSentiment string `form:"caller_sentiment"`
	CallerName      string `form:"caller_name"`
	ResponderName   string `form:"responder_name"`
	IssueSummary    string `form:"issue_summary"`
	CallID          string `form:"call_id"`

	CreatedFrom time.Time `form:"created_from" time_format:"2006-01-02T15:04:05Z07:00"`
	CreatedTo   time.Time `form:"created_to" time_format:"2006-01-02T15:04:05Z07:00"`

	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
	SortBy string `form:"sort_by"`
	Order  string `form:"order"`
}

func (h Handlers) ListCalls(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var p listParams
	if err := c.ShouldBindQuery(&p); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}
	q := calls.ListQuery{
		OrganisationID:  id.OrganisationID,
		Status:          calls.Status(p.Status),
		CallType:        p.CallType,
		RequestType:     p.RequestType,
		CallerSentiment: p.CallerSentiment,
		CallerName:      p.CallerName,
		ResponderName:   p.ResponderName,
		IssueSummary:    p.IssueSummary,
		CallID:          p.CallID,
		CreatedFrom:     p.CreatedFrom,
		CreatedTo:       p.CreatedTo,
		Limit:           p.Limit,
		Offset:          p.Offset,
		SortBy:          p.SortBy,
	}
	switch strings.ToLower(p.Order) {
	case "", "desc":
		q.SortDesc = true
	case "asc":
	default:
		badRequest(c, "order must be asc or desc")
		return
	}
	// Normalize here so the response echoes the effective paging.
	if err := q.Normalize(); err != nil {
		writeError(c, err)
		return
	}
	items, err := h.Calls.List(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []calls.CallRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": q.Limit, "offset": q.Offset})
}

func (h Handlers) GetCall(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	rec, err := h.Calls.Get(c.Request.Context(), id.OrganisationID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// CallLogs returns the newest records with every column.
func (h Handlers) CallLogs(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.Param("limit"))
	if err != nil || limit <= 0 {
		badRequest(c, "limit must be a positive integer")
		return
	}
	items, err := h.Calls.Logs(c.Request.Context(), id.OrganisationID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []calls.CallRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type columnsRequest struct {
	Columns []string `json:"columns" binding:"required,min=1"`
	Limit   int      `json:"limit"`
}

func (h Handlers) CallColumns(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req columnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "columns required")
		return
	}
	rows, err := h.Calls.Columns(c.Request.Context(), id.OrganisationID, req.Columns, req.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	c.JSON(http.StatusOK, gin.H{"columns": req.Columns, "rows": rows})
}

// CorrectCall lets an admin fix the extracted form fields.
// RBAC: admin or super_admin.
func (h Handlers) CorrectCall(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req calls.FormCorrection
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	rec, err := h.Calls.Correct(c.Request.Context(), id.OrganisationID, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	h.adminAction(c, id, rec.ID, "form corrected")
	c.JSON(http.StatusOK, rec)
}

// DeleteCall removes the record and any leftover recording.
// RBAC: admin or super_admin.
func (h Handlers) DeleteCall(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	rec, err := h.Calls.Get(ctx, id.OrganisationID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.Calls.Delete(ctx, id.OrganisationID, rec.ID); err != nil {
		writeError(c, err)
		return
	}
	if err := h.Blobs.Delete(ctx, BlobKey(id.OrganisationID, rec.Filename)); err != nil {
		logger.FromGin(c).Warn("delete recording failed", "record_id", rec.ID, "err", err)
	}
	h.adminAction(c, id, rec.ID, "record deleted")
	c.Status(http.StatusNoContent)
}

func (h Handlers) CallAnswers(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	answers, err := h.Questions.AnswersForCall(c.Request.Context(), id.OrganisationID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if answers == nil {
		answers = []questions.AnswerView{}
	}
	c.JSON(http.StatusOK, gin.H{"call_record_id": c.Param("id"), "answers": answers})
}
