package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/jwt"
)

type principalKey struct{}

// Principal is the authenticated caller resolved from the access token.
type Principal struct {
	EmployeeID string
	Role       auth.Role
}

// AuthRequired rejects requests without a valid access token bound to an
// employee. It must run after jwtauth.Verifier.
func AuthRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.HandleError(w, jwt.VerificationError(err))
			return
		}

		if token == nil {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		claims, err := token.AsMap(r.Context())
		if err != nil {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}
		tokenType, ok := claims["type"].(string)
		if tokenType != jwt.TokenTypeAccess || !ok {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		employeeID, _ := claims["employee_id"].(string)
		if employeeID == "" {
			response.HandleError(w, auth.ErrEmployeeRequired)
			return
		}
		role, _ := claims["role"].(string)

		ctx := context.WithValue(r.Context(), principalKey{}, Principal{
			EmployeeID: employeeID,
			Role:       auth.Role(role),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PrincipalFromContext returns the caller stored by AuthRequired.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
