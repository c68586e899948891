package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwtKey is the secret used to sign session tokens.
// In a production environment, this should be loaded from an environment variable or a secret manager.
var jwtKey = []byte("dmcore_signing_key_rotate_me_2026")

// SessionClaims binds a token to a participant identity.
// The messaging core only ever consumes ParticipantID; it never manages
// login state itself.
type SessionClaims struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed session JWT for a participant.
func GenerateToken(participantID, displayName string, tokenDuration time.Duration) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		ParticipantID: participantID,
		DisplayName:   displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "dmcore",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

// ValidateToken parses and validates the signature and expiration of a session token.
func ValidateToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return jwtKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
