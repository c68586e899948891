package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "AVeryStr0ngPassphrase!"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("WrongPassword1!", hash)
	req.NoError(err)
	req.False(match)
}

func TestTokenRoundTrip(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("participant-42", "Alice", time.Hour)
	req.NoError(err)

	claims, err := ValidateToken(token)
	req.NoError(err)
	req.Equal("participant-42", claims.ParticipantID)
	req.Equal("Alice", claims.DisplayName)
	req.Equal("dmcore", claims.Issuer)
}

func TestExpiredTokenRejected(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("participant-42", "Alice", -time.Minute)
	req.NoError(err)

	_, err = ValidateToken(token)
	req.Error(err)
}

func TestRegistrationValidation(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr bool
	}{
		{"Valid request", RegisterRequest{"test@example.com", "Alice", "ComplexPass123!"}, false},
		{"Invalid email", RegisterRequest{"notanemail", "Alice", "ComplexPass123!"}, true},
		{"Missing display name", RegisterRequest{"test@example.com", "", "ComplexPass123!"}, true},
		{"Password too short", RegisterRequest{"test@example.com", "Alice", "Short1!"}, true},
		{"Missing digit", RegisterRequest{"test@example.com", "Alice", "NoDigitPassword!"}, true},
		{"Missing special char", RegisterRequest{"test@example.com", "Alice", "NoSpecialChar123"}, true},
		{"Missing uppercase", RegisterRequest{"test@example.com", "Alice", "nouppercase123!!"}, true},
		{"Password too long", RegisterRequest{"test@example.com", "Alice", strings.Repeat("a", 73)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(tt.req)
			if tt.wantErr {
				req.Error(err)
			} else {
				req.NoError(err)
			}
		})
	}
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
