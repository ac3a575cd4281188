package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrMalformedClaims = errors.New("malformed session claims")

// JWTAuthenticator issues and checks admin session tokens.
type JWTAuthenticator struct {
	secret string
	iss    string
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTAuthenticator(secret, iss string, ttl time.Duration) *JWTAuthenticator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTAuthenticator{secret: secret, iss: iss, ttl: ttl, now: time.Now}
}

// GenerateToken returns a signed session token and its expiry.
func (a *JWTAuthenticator) GenerateToken(adminID, role string) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.ttl)
	claims := jwt.MapClaims{
		"sub":  adminID,
		"role": role,
		"jti":  uuid.NewString(),
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"iss":  a.iss,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(a.secret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, exp, nil
}

func (a *JWTAuthenticator) ValidateToken(token string) (*jwt.Token, error) {
	return jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(a.secret), nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(a.iss),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(a.now),
	)
}

// Subject returns the admin id and role carried by a validated token.
func Subject(token *jwt.Token) (string, string, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrMalformedClaims
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", "", ErrMalformedClaims
	}
	role, _ := claims["role"].(string)
	return sub, role, nil
}
