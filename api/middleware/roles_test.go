package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bookhaven/bookledger-backend/pkg/enums"
)

func TestRequireStorekeeper(t *testing.T) {
	var reached bool
	handler := RequireStorekeeper(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		role   string
		status int
		pass   bool
	}{
		{name: "storekeeper passes", role: string(enums.RoleStorekeeper), status: http.StatusNoContent, pass: true},
		{name: "holder rejected", role: string(enums.RoleHolder), status: http.StatusForbidden},
		{name: "missing role rejected", role: "", status: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reached = false
			req := httptest.NewRequest(http.MethodPost, "/api/v1/catalog/books", nil)
			if tc.role != "" {
				req = req.WithContext(WithRole(req.Context(), tc.role))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("unexpected status %d", rec.Code)
			}
			if reached != tc.pass {
				t.Fatalf("handler reached=%v, want %v", reached, tc.pass)
			}
		})
	}
}
