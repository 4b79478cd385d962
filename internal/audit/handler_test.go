package audit

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/quorum-app/quorum/internal/shared"
)

func TestTimelineRouteGuardedByInjectedGate(t *testing.T) {
	var gatePerms []string
	gate := func(perms ...string) func(http.Handler) http.Handler {
		gatePerms = perms
		return func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			})
		}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, nil, nil, nil, nil, gate)

	r := chi.NewRouter()
	h.MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, []string{shared.PermAuditView}, gatePerms)
}
