package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovenfresh/bakery-api/internal/dto"
	"github.com/ovenfresh/bakery-api/internal/model"
)

const testJWTSecret = "test-secret"

func newAuthFixture() (*AuthService, *mockUserRepo) {
	repo := newMockUserRepo()
	return NewAuthService(repo, testJWTSecret, time.Hour), repo
}

func TestAuthService_Register(t *testing.T) {
	svc, repo := newAuthFixture()

	resp, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email: "pat@example.com", Password: "hunter22",
		FirstName: "Pat", LastName: "Baker",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "pat@example.com", resp.User.Email)
	assert.Equal(t, model.RoleCustomer, resp.User.Role)

	stored, err := repo.GetByEmail(context.Background(), "pat@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "hunter22", stored.Password, "password must be stored hashed")
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	svc, _ := newAuthFixture()

	req := dto.RegisterRequest{Email: "pat@example.com", Password: "hunter22"}
	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestAuthService_Login(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email: "pat@example.com", Password: "hunter22",
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		Email: "pat@example.com", Password: "hunter22",
	})
	require.NoError(t, err)

	token, err := jwt.Parse(resp.Token, func(*jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, resp.User.ID.String(), claims["sub"])
	assert.Equal(t, string(model.RoleCustomer), claims["role"])
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email: "pat@example.com", Password: "hunter22",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), dto.LoginRequest{
		Email: "pat@example.com", Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture()
	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Email: "nobody@example.com", Password: "hunter22",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
