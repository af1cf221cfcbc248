package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"call-insights/internal/chat"
	"call-insights/internal/reporting"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	UserPrompt string `json:"user_prompt" binding:"required"`
	CallRef    string `json:"call_ref" binding:"required"`
}

// PostChat answers a question about one call, with the caller's recent turns as context.
func (h Handlers) PostChat(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "user_prompt and call_ref required")
		return
	}
	reply, err := h.Chat.Chat(c.Request.Context(), req.UserPrompt, req.CallRef, chat.Identity{
		UserID:         id.UserID,
		OrganisationID: id.OrganisationID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": reply})
}

const defaultReportWindow = 30 * 24 * time.Hour

type rangeParams struct {
	From time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To   time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// reportRange defaults to the last 30 days ending now.
func reportRange(c *gin.Context) (reporting.TimeRange, bool) {
	var p rangeParams
	if err := c.ShouldBindQuery(&p); err != nil {
		badRequest(c, "from and to must be RFC 3339 timestamps")
		return reporting.TimeRange{}, false
	}
	if p.To.IsZero() {
		p.To = time.Now().UTC()
	}
	if p.From.IsZero() {
		p.From = p.To.Add(-defaultReportWindow)
	}
	return reporting.TimeRange{From: p.From, To: p.To}, true
}

func (h Handlers) ReportSummary(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	r, ok := reportRange(c)
	if !ok {
		return
	}
	out, err := h.Reports.Summary(c.Request.Context(), reporting.SummaryRequest{OrganisationID: id.OrganisationID, Range: r})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h Handlers) ReportExport(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	r, ok := reportRange(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if _, err := h.Reports.ExportCallLogs(c.Request.Context(), reporting.ExportRequest{OrganisationID: id.OrganisationID, Range: r}, &buf); err != nil {
		writeError(c, err)
		return
	}
	name := fmt.Sprintf("call-logs-%s-%s.xlsx", r.From.Format("20060102"), r.To.Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
