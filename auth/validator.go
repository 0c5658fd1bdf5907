package auth

import (
	stderrors "errors"
	"fmt"
	"unicode"

	"chat-relay/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// CredentialsRequest carries the normalized handshake inputs.
// The wire protocol is ASCII-only, so both fields must be printable
// ASCII; usernames additionally may not contain whitespace because
// they prefix every relayed line.
type CredentialsRequest struct {
	Username string `validate:"required,max=64"`
	Password string `validate:"required,max=64"`
}

func ValidateCredentials(req CredentialsRequest) error {
	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 && fieldErrs[0].Field() == "Password" {
			return fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
		}
		return fmt.Errorf("%w: %v", errors.ErrInvalidUsername, err)
	}

	if !isPrintableASCII(req.Username) || containsSpace(req.Username) {
		return errors.ErrInvalidUsername
	}

	if !isPrintableASCII(req.Password) {
		return errors.ErrInvalidPassword
	}
	return nil
}

func isPrintableASCII(s string) bool {
	for _, char := range s {
		if char > unicode.MaxASCII || !unicode.IsPrint(char) {
			return false
		}
	}
	return true
}

func containsSpace(s string) bool {
	for _, char := range s {
		if unicode.IsSpace(char) {
			return true
		}
	}
	return false
}
