package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
)

// AuthRequired rejects requests without a verified access token that names a company.
// It must run after jwtauth.Verifier.
func AuthRequired(next http.Handler) http.Handler {
	hfn := func(w http.ResponseWriter, r *http.Request) {
		if _, err := jwt.ClaimsFromContext(r.Context()); err != nil {
			response.HandleError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(hfn)
}
