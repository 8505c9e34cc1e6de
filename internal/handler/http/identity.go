package http

import (
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
)

// identity returns the caller's claims, writing the error response when absent.
func identity(w http.ResponseWriter, r *http.Request) (jwt.Claims, bool) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return jwt.Claims{}, false
	}
	return claims, true
}
