package httpapi

import (
	"call-insights/internal/rbac"

	"github.com/gin-gonic/gin"
)

// Register wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func Register(r *gin.Engine, h Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", h.Healthz)

	authGroup := r.Group("/v1/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW, rbac.RequireOrganisation())
	{
		v1.GET("/me", h.Me)

		readers := rbac.RequireAnyRole(rbac.RoleAdmin, rbac.RoleAnalyst)
		admins := rbac.RequireAnyRole(rbac.RoleAdmin)

		calls := v1.Group("/calls")
		{
			calls.POST("/upload", rbac.RequireAnyRole(rbac.RoleAgent, rbac.RoleAdmin), h.Upload)

			calls.GET("", readers, h.ListCalls)
			calls.GET("/logs/:limit", readers, h.CallLogs)
			calls.POST("/columns", readers, h.CallColumns)
			calls.GET("/:id", readers, h.GetCall)
			calls.GET("/:id/answers", readers, h.CallAnswers)

			calls.PATCH("/:id", admins, h.CorrectCall)
			calls.DELETE("/:id", admins, h.DeleteCall)
		}

		questions := v1.Group("/questions")
		{
			questions.GET("", readers, h.ListQuestions)
			questions.POST("", admins, h.CreateQuestion)
			questions.PATCH("/:id", admins, h.UpdateQuestion)
			questions.DELETE("/:id", admins, h.DeleteQuestion)
		}

		v1.POST("/chat", readers, h.PostChat)

		reports := v1.Group("/reports")
		reports.Use(readers)
		{
			reports.GET("/summary", h.ReportSummary)
			reports.GET("/export.xlsx", h.ReportExport)
		}
	}
}
