package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestContextHelpersRoundTrip(t *testing.T) {
	t.Parallel()

	partyID := uuid.New()
	ctx := WithUserID(context.Background(), "user-1")
	ctx = WithRole(ctx, "producer")
	ctx = WithPartyID(ctx, partyID)

	if got := UserIDFromContext(ctx); got != "user-1" {
		t.Fatalf("user id = %q, want %q", got, "user-1")
	}
	if got := RoleFromContext(ctx); got != "producer" {
		t.Fatalf("role = %q, want %q", got, "producer")
	}
	if got := PartyIDFromContext(ctx); got != partyID {
		t.Fatalf("party id = %s, want %s", got, partyID)
	}
}

func TestContextHelpersDefaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if got := UserIDFromContext(ctx); got != "" {
		t.Fatalf("user id = %q, want empty", got)
	}
	if got := PartyIDFromContext(ctx); got != uuid.Nil {
		t.Fatalf("party id = %s, want nil uuid", got)
	}
}

func TestRequireRoleBlocksOtherRoles(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := RequireRole("admin", nil)(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithRole(req.Context(), "buyer"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithRole(req.Context(), "admin"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}
