package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Authenticator interface {
	GenerateToken(adminID, role string) (string, time.Time, error)
	ValidateToken(token string) (*jwt.Token, error)
}
