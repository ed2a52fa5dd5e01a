package service_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monetra/backend/internal/domain"
	"github.com/monetra/backend/internal/service"
	"github.com/monetra/backend/internal/testutil"
)

func newAuthService(store *testutil.Store) *service.AuthService {
	return service.NewAuthService("jwt-test-secret", time.Hour, store.Users(), testutil.Logger())
}

func TestSignupAndSignin(t *testing.T) {
	store := testutil.NewStore()
	svc := newAuthService(store)
	ctx := context.Background()

	signup, err := svc.Signup(ctx, &domain.SignupRequest{Email: "  Ada@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", signup.User.Email)
	assert.NotEmpty(t, signup.Token)

	stored, err := store.Users().FindByID(ctx, signup.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.Password)

	signin, err := svc.Signin(ctx, &domain.SigninRequest{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	claims, err := svc.VerifyToken(signin.Token)
	require.NoError(t, err)
	assert.Equal(t, signup.User.ID, claims.Sub)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := newAuthService(testutil.NewStore())
	ctx := context.Background()

	_, err := svc.Signup(ctx, &domain.SignupRequest{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, &domain.SignupRequest{Email: "ADA@example.com", Password: "secret2"})
	requireCode(t, err, http.StatusBadRequest)
	assert.Contains(t, err.Error(), "Email already in use")
}

func TestSignupValidation(t *testing.T) {
	svc := newAuthService(testutil.NewStore())

	_, err := svc.Signup(context.Background(), &domain.SignupRequest{Email: "not-an-email", Password: "123"})
	requireCode(t, err, http.StatusUnprocessableEntity)
}

func TestSigninWrongPassword(t *testing.T) {
	svc := newAuthService(testutil.NewStore())
	ctx := context.Background()

	_, err := svc.Signup(ctx, &domain.SignupRequest{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Signin(ctx, &domain.SigninRequest{Email: "ada@example.com", Password: "wrong"})
	requireCode(t, err, http.StatusUnauthorized)

	_, err = svc.Signin(ctx, &domain.SigninRequest{Email: "nobody@example.com", Password: "secret1"})
	requireCode(t, err, http.StatusUnauthorized)
}

func TestVerifyTokenRejects(t *testing.T) {
	svc := newAuthService(testutil.NewStore())

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()})
	forged, err := other.SignedString([]byte("another-secret"))
	require.NoError(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Minute).Unix()})
	stale, err := expired.SignedString([]byte("jwt-test-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{"forged": forged, "expired": stale, "garbage": "abc.def.ghi"} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.VerifyToken(token)
			requireCode(t, err, http.StatusUnauthorized)
		})
	}
}
