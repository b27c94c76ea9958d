package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testService(t *testing.T) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	return &Service{AdminEmail: "seller@example.com", AdminPasswordHash: string(hash)}
}

func TestLogin_MissingFields(t *testing.T) {
	s := testService(t)

	u, err := s.Login(LoginInput{Email: "", Password: "hunter2"})
	assert.Nil(t, u)
	assert.Equal(t, ErrEmailPasswordRequired, err)

	u, err = s.Login(LoginInput{Email: "seller@example.com", Password: ""})
	assert.Nil(t, u)
	assert.Equal(t, ErrEmailPasswordRequired, err)
}

func TestLogin_UnknownEmail(t *testing.T) {
	s := testService(t)
	u, err := s.Login(LoginInput{Email: "someone@else.com", Password: "hunter2"})
	assert.Nil(t, u)
	assert.Equal(t, ErrInvalidEmail, err)
}

func TestLogin_WrongPassword(t *testing.T) {
	s := testService(t)
	u, err := s.Login(LoginInput{Email: "seller@example.com", Password: "letmein"})
	assert.Nil(t, u)
	assert.Equal(t, ErrIncorrectPassword, err)
}

func TestLogin_Valid(t *testing.T) {
	s := testService(t)
	u, err := s.Login(LoginInput{Email: "seller@example.com", Password: "hunter2"})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "seller@example.com", u.Email)
}

func TestLogin_CaseInsensitiveEmail(t *testing.T) {
	s := testService(t)
	u, err := s.Login(LoginInput{Email: "Seller@Example.COM", Password: "hunter2"})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "seller@example.com", u.Email)
}

func TestLogin_Unconfigured(t *testing.T) {
	s := &Service{}
	u, err := s.Login(LoginInput{Email: "seller@example.com", Password: "hunter2"})
	assert.Nil(t, u)
	assert.Equal(t, ErrInvalidEmail, err)
}

func TestVerifyUser_Nil(t *testing.T) {
	u, err := VerifyUser(nil)
	assert.Nil(t, u)
	assert.Equal(t, ErrNotAuthenticated, err)
}

func TestVerifyUser_EmptyMap(t *testing.T) {
	u, err := VerifyUser(map[string]interface{}{})
	assert.Nil(t, u)
	assert.Equal(t, ErrNotAuthenticated, err)
}

func TestVerifyUser_NoEmail(t *testing.T) {
	u, err := VerifyUser(map[string]interface{}{"logged_in": true})
	assert.Nil(t, u)
	assert.Equal(t, ErrNotAuthenticated, err)
}

func TestVerifyUser_Valid(t *testing.T) {
	u, err := VerifyUser(map[string]interface{}{"email": "seller@example.com"})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "seller@example.com", u.Email)
}
