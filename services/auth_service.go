package services

import (
	"fmt"
	"time"

	"dmcore/auth"
	"dmcore/domain"
	"dmcore/errors"
	"dmcore/repositories"
)

type IAuthService interface {
	Register(email, displayName, password string) (Token, domain.Peer, error)
	Login(email, password string) (Token, error)
	Identify(token string) (domain.Participant, error)
}

type AuthService struct {
	userRepository repositories.IUserRepository
	tokenDuration  time.Duration
}

type Token string

func NewAuthService(repo repositories.IUserRepository, tokenDuration time.Duration) IAuthService {
	return &AuthService{userRepository: repo, tokenDuration: tokenDuration}
}

func (s *AuthService) Register(email, displayName, password string) (Token, domain.Peer, error) {
	valReq := auth.RegisterRequest{
		Email:       email,
		DisplayName: displayName,
		Password:    password,
	}

	// Validate business rules before any expensive cryptographic operation.
	if err := auth.ValidateRegister(valReq); err != nil {
		return "", domain.Peer{}, fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// Hashing happens in the service layer to keep the repository unaware
	// of plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", domain.Peer{}, fmt.Errorf("hashing failed: %w", err)
	}

	peer, err := s.userRepository.CreateUser(email, displayName, "", hashedPassword)
	if err != nil {
		return "", domain.Peer{}, err // Propagates ErrUserAlreadyExists if the email is taken
	}

	token, err := auth.GenerateToken(string(peer.ID), displayName, s.tokenDuration)
	if err != nil {
		return "", domain.Peer{}, errors.ErrTokenGeneration
	}
	return Token(token), peer, nil
}

func (s *AuthService) Login(email, password string) (Token, error) {
	user, err := s.userRepository.GetUserByEmail(email)
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.DisplayName, s.tokenDuration)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}

// Identify resolves a session token to the participant it was issued for.
// This is the only door between the session layer and the messaging core.
func (s *AuthService) Identify(token string) (domain.Participant, error) {
	claims, err := auth.ValidateToken(token)
	if err != nil {
		return "", errors.ErrInvalidCredentials
	}
	return domain.Participant(claims.ParticipantID), nil
}
