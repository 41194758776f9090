package library

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultUsername = "admin"
	DefaultPassword = "password"
)

func defaultCredentials() (string, []byte, error) {
	hash, err := HashPassword(DefaultPassword)
	return DefaultUsername, hash, err
}

// HashPassword returns the bcrypt hash stored in configuration.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

// Authenticate checks the operator credential.
func (lm *LibraryManager) Authenticate(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(lm.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(lm.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		lm.logger.Warn(logMsgAuthFailed, logAttrUsername, username)
		return ErrInvalidCredentials
	}
	return nil
}
