package services

import (
	"crypto/subtle"

	"chat-relay/auth"
	"chat-relay/errors"
	"chat-relay/repositories"
)

type IAuthService interface {
	Login(username, password string) error
	Register(username, password string) error
}

type AuthService struct {
	credentialRepository repositories.ICredentialRepository
}

func NewAuthService(repo repositories.ICredentialRepository) IAuthService {
	return &AuthService{credentialRepository: repo}
}

// Register validates the credentials and persists them.
// Inputs are expected in canonical form (trimmed, lower-cased); the
// handshake normalizes before calling here.
func (s *AuthService) Register(username, password string) error {
	valReq := auth.CredentialsRequest{
		Username: username,
		Password: password,
	}

	// Validate the shape before touching the store.
	if err := auth.ValidateCredentials(valReq); err != nil {
		return err
	}

	// Will propagate ErrUserAlreadyExists if the name is taken.
	return s.credentialRepository.Insert(username, password)
}

// Login checks a plaintext password against the stored row.
// An unknown username and a wrong password both surface as
// ErrInvalidCredentials to prevent user enumeration.
func (s *AuthService) Login(username, password string) error {
	credential, err := s.credentialRepository.Get(username)
	if err != nil {
		return errors.ErrInvalidCredentials
	}

	if subtle.ConstantTimeCompare([]byte(credential.Password), []byte(password)) != 1 {
		return errors.ErrInvalidCredentials
	}

	return nil
}
