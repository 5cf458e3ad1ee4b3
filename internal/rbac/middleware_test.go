package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"ivr-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

func serve(t *testing.T, id auth.Identity, roles ...string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handlers := []gin.HandlerFunc{func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}}
	handlers = append(handlers, Chain(roles...)...)
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusOK) })

	r := gin.New()
	r.GET("/x", handlers...)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w.Code
}

func TestRequireAnyRole_SuperAdminBypasses(t *testing.T) {
	if code := serve(t, auth.Identity{UserID: "u", WorkspaceID: "w", Role: RoleSuperAdmin}, RoleOwner); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_AllowedRole(t *testing.T) {
	if code := serve(t, auth.Identity{UserID: "u", WorkspaceID: "w", Role: RoleAnalyst}, CallReaders...); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_OtherRoleForbidden(t *testing.T) {
	if code := serve(t, auth.Identity{UserID: "u", WorkspaceID: "w", Role: RoleAgent}, CreditReaders...); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_WorkspaceRequired(t *testing.T) {
	if code := serve(t, auth.Identity{UserID: "u", Role: RoleOwner}, RoleOwner); code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}
