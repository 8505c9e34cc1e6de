package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	ErrInvalidToken     = errors.New("invalid or missing access token")
	ErrCompanyIDMissing = errors.New("access token carries no company")
)

// Claims is the caller identity carried by an access token.
type Claims struct {
	UserID    string
	CompanyID string
}

type Service interface {
	GenerateAccessToken(userID string, companyID string) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpirationTime string
	tokenAuth                 *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) Service {
	return &JWTService{
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) GenerateAccessToken(userID string, companyID string) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = time.Now().Add(expDuration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":    userID,
		"company_id": companyID,
		"type":       "access",
		"exp":        expiresAt,
	})
	return tokenString, expiresAt, err
}

// ClaimsFromContext reads the verified access token placed in ctx by jwtauth.Verifier.
func ClaimsFromContext(ctx context.Context) (Claims, error) {
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil || token == nil {
		return Claims{}, ErrInvalidToken
	}
	if tokenType, _ := claims["type"].(string); tokenType != "access" {
		return Claims{}, ErrInvalidToken
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return Claims{}, ErrInvalidToken
	}
	companyID, _ := claims["company_id"].(string)
	if companyID == "" {
		return Claims{}, ErrCompanyIDMissing
	}
	return Claims{UserID: userID, CompanyID: companyID}, nil
}
