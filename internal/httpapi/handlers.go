package httpapi

import (
	"context"
	"errors"
	"net/http"

	"call-insights/internal/audit"
	"call-insights/internal/auth"
	"call-insights/internal/blob"
	"call-insights/internal/callmeta"
	"call-insights/internal/calls"
	"call-insights/internal/chat"
	"call-insights/internal/memory"
	"call-insights/internal/pipeline"
	"call-insights/internal/questions"
	"call-insights/internal/reporting"
	"call-insights/pkg/logger"

	"github.com/gin-gonic/gin"
)

// DefaultMaxUploadBytes bounds a single recording upload.
const DefaultMaxUploadBytes = 200 << 20

// Dispatcher starts background processing of an uploaded recording.
type Dispatcher interface {
	Dispatch(ctx context.Context, job pipeline.Job)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth      *auth.Authenticator
	Calls     *calls.Service
	Questions *questions.Service
	Chat      *chat.Service
	Reports   *reporting.Service
	Audit     *audit.Service
	Blobs     blob.Store
	Jobs      Dispatcher

	// Health reports dependency readiness for /healthz. Nil means always healthy.
	Health func(ctx context.Context) error

	MaxUploadBytes int64
}

var errUnsupportedExtension = errors.New("only .wav and .mp3 files are accepted")

// writeError maps domain errors onto status codes. Anything unrecognised is logged
// and reported as a generic 500.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, calls.ErrInvalidArgument),
		errors.Is(err, questions.ErrInvalidArgument),
		errors.Is(err, memory.ErrInvalidArgument),
		errors.Is(err, callmeta.ErrInvalidFilename),
		errors.Is(err, chat.ErrEmptyPrompt),
		errors.Is(err, reporting.ErrInvalidRequest),
		errors.Is(err, errUnsupportedExtension):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, calls.ErrNotFound), errors.Is(err, questions.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, calls.ErrDuplicateFilename), errors.Is(err, chat.ErrTranscriptUnavailable):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		logger.FromGin(c).Error("request failed", "err", err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func identity(c *gin.Context) (auth.Identity, bool) {
	id, err := auth.FromContext(c.Request.Context())
	if err != nil || id.OrganisationID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "organisation_id required"})
		return auth.Identity{}, false
	}
	return id, true
}

// --- Health ---

func (h Handlers) Healthz(c *gin.Context) {
	if h.Health != nil {
		if err := h.Health(c.Request.Context()); err != nil {
			logger.FromGin(c).Warn("health check failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Auth ---

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges email and password for a JWT token pair.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password required")
		return
	}
	pair, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "refresh_token required")
		return
	}
	pair, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h Handlers) Me(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "organisation_id": id.OrganisationID, "role": id.Role})
}

func (h Handlers) adminAction(c *gin.Context, id auth.Identity, recordID, msg string) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.LogAdminAction(c.Request.Context(), id.OrganisationID, id.UserID, id.Role, recordID, msg); err != nil {
		logger.FromGin(c).Warn("audit write failed", "err", err)
	}
}
