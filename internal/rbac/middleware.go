package rbac

import (
	"net/http"

	"call-insights/internal/auth"
	"call-insights/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RequireOrganisation rejects requests whose identity carries no organisation.
// Every repository query is scoped by it, so nothing downstream runs without one.
func RequireOrganisation() gin.HandlerFunc {
	return func(c *gin.Context) {
		org, err := auth.OrganisationID(c.Request.Context())
		if err != nil || org == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "organisation_id required"})
			return
		}
		c.Next()
	}
}

// RequireAnyRole admits callers holding one of allowed.
// super_admin is always admitted and unknown roles never are.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	permitted := make(map[string]bool, len(allowed))
	for _, r := range allowed {
		permitted[r] = true
	}

	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if !admitted(role, permitted) {
			logger.FromGin(c).Info("role denied", "role", role, "route", c.FullPath())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func admitted(role string, permitted map[string]bool) bool {
	switch {
	case IsSuperAdmin(role):
		return true
	case !IsKnown(role):
		return false
	default:
		return permitted[role]
	}
}
