package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// LoginInput for login request body.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionUser is the object stored in session and returned by /me.
type SessionUser struct {
	Email string `json:"email"`
}

// Service verifies operator credentials. The dashboard has a single
// operator account configured through ADMIN_EMAIL and ADMIN_PASSWORD_HASH;
// there is no user table. Leaving either value unset disables login.
type Service struct {
	AdminEmail        string
	AdminPasswordHash string
}

// Login checks the input against the configured operator account.
func (s *Service) Login(input LoginInput) (*SessionUser, error) {
	if input.Email == "" || input.Password == "" {
		return nil, ErrEmailPasswordRequired
	}
	if s.AdminEmail == "" || s.AdminPasswordHash == "" {
		return nil, ErrInvalidEmail
	}
	if !strings.EqualFold(input.Email, s.AdminEmail) {
		return nil, ErrInvalidEmail
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.AdminPasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrIncorrectPassword
	}
	return &SessionUser{Email: s.AdminEmail}, nil
}

// VerifyUser validates the session payload and returns the shape for /me.
// Session values round-trip through JSON, so the payload arrives as a map.
func VerifyUser(sessionUser interface{}) (*SessionUser, error) {
	if sessionUser == nil {
		return nil, ErrNotAuthenticated
	}
	m, ok := sessionUser.(map[string]interface{})
	if !ok {
		return nil, ErrNotAuthenticated
	}
	email, _ := m["email"].(string)
	if email == "" {
		return nil, ErrNotAuthenticated
	}
	return &SessionUser{Email: email}, nil
}
