package jwt

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/auth"
)

const (
	TokenTypeAccess = "access"
	TokenTypeStream = "sse"

	streamTokenTTL = 5 * time.Minute
)

type Service interface {
	GenerateAccessToken(employeeID string, role auth.Role) (token string, expiresAt int64, err error)
	GenerateStreamToken(employeeID string) (token string, expiresIn int, err error)
	ValidateStreamToken(tokenString string) (employeeID string, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenTTL time.Duration
	tokenAuth      *jwtauth.JWTAuth
	now            func() time.Time
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenTTL time.Duration) Service {
	return &JWTService{
		accessTokenTTL: accessTokenTTL,
		tokenAuth:      jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:            time.Now,
	}
}

func (j *JWTService) GenerateAccessToken(employeeID string, role auth.Role) (token string, expiresAt int64, err error) {
	expiresAt = j.now().Add(j.accessTokenTTL).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]any{
		"employee_id": employeeID,
		"role":        string(role),
		"type":        TokenTypeAccess,
		"exp":         expiresAt,
	})
	return tokenString, expiresAt, err
}

// GenerateStreamToken generates a short-lived token for SSE connections,
// which cannot carry an Authorization header from the browser.
func (j *JWTService) GenerateStreamToken(employeeID string) (token string, expiresIn int, err error) {
	expiresAt := j.now().Add(streamTokenTTL).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]any{
		"employee_id": employeeID,
		"type":        TokenTypeStream,
		"exp":         expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, int(streamTokenTTL.Seconds()), nil
}

// ValidateStreamToken validates an SSE token and returns the employee ID
func (j *JWTService) ValidateStreamToken(tokenString string) (employeeID string, err error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return "", VerificationError(err)
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != TokenTypeStream {
		return "", auth.ErrInvalidToken
	}

	employeeIDVal, ok := token.Get("employee_id")
	if !ok {
		return "", auth.ErrInvalidToken
	}

	employeeID, ok = employeeIDVal.(string)
	if !ok || employeeID == "" {
		return "", auth.ErrInvalidToken
	}

	return employeeID, nil
}

// VerificationError maps a token verification failure to auth.ErrTokenExpired
// or auth.ErrInvalidToken.
func VerificationError(err error) error {
	if errors.Is(err, jwtauth.ErrExpired) || errors.Is(err, jwt.ErrTokenExpired()) {
		return auth.ErrTokenExpired
	}
	return auth.ErrInvalidToken
}
