package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"call-insights/internal/auth"

	"github.com/gin-gonic/gin"
)

func serveWithRole(org, role string, allowed ...string) int {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "u", org, role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}, RequireOrganisation(), RequireAnyRole(allowed...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w.Code
}

func TestRequireAnyRole_SuperAdminBypasses(t *testing.T) {
	if code := serveWithRole("o", RoleSuperAdmin, RoleAdmin); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_DeniesRoleNotAllowed(t *testing.T) {
	if code := serveWithRole("o", RoleAgent, RoleAdmin); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_DeniesUnknownRole(t *testing.T) {
	if code := serveWithRole("o", "intruder", "intruder"); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireOrganisation_Required(t *testing.T) {
	if code := serveWithRole("", RoleAdmin, RoleAdmin); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}
