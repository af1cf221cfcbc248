package httpapi

import (
	"net/http"

	"call-insights/internal/questions"

	"github.com/gin-gonic/gin"
)

func (h Handlers) ListQuestions(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	qs, err := h.Questions.List(c.Request.Context(), id.OrganisationID)
	if err != nil {
		writeError(c, err)
		return
	}
	if qs == nil {
		qs = []questions.Question{}
	}
	c.JSON(http.StatusOK, gin.H{"questions": qs})
}

type createQuestionRequest struct {
	QuestionText string `json:"question_text" binding:"required"`
	// IsCommon defaults to true: common questions are asked of every call.
	IsCommon *bool `json:"is_common"`
}

// CreateQuestion adds a standing question. RBAC: admin or super_admin.
func (h Handlers) CreateQuestion(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req createQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "question_text required")
		return
	}
	common := true
	if req.IsCommon != nil {
		common = *req.IsCommon
	}
	q, err := h.Questions.Create(c.Request.Context(), id.OrganisationID, req.QuestionText, common)
	if err != nil {
		writeError(c, err)
		return
	}
	h.adminAction(c, id, "", "question created: "+q.ID)
	c.JSON(http.StatusCreated, q)
}

func (h Handlers) UpdateQuestion(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req questions.QuestionUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	q, err := h.Questions.Update(c.Request.Context(), id.OrganisationID, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	h.adminAction(c, id, "", "question updated: "+q.ID)
	c.JSON(http.StatusOK, q)
}

func (h Handlers) DeleteQuestion(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if err := h.Questions.Delete(c.Request.Context(), id.OrganisationID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	h.adminAction(c, id, "", "question deleted: "+c.Param("id"))
	c.Status(http.StatusNoContent)
}
