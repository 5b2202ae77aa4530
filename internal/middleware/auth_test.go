package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"PerfPulsePlatform/internal/domain"
	"PerfPulsePlatform/internal/pkg/token"
	"PerfPulsePlatform/internal/service"
	"PerfPulsePlatform/pkg/errors"
	"PerfPulsePlatform/pkg/logger"
	"PerfPulsePlatform/pkg/mocks"
)

const testSecret = "test-secret"

func mintBearer(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

type authFixture struct {
	tenants    *mocks.MockTenantRepository
	users      *mocks.MockUserRepository
	middleware *AuthMiddleware
}

func newAuthFixture() *authFixture {
	tenants := &mocks.MockTenantRepository{}
	users := &mocks.MockUserRepository{}
	log := logger.NewNop()

	resolver := service.NewTenantResolver(tenants, nil, time.Minute, log)
	provisioner := service.NewProvisioner(tenants, users, true, true, log)
	verifier := token.NewVerifier(testSecret, token.ModeStrict)

	return &authFixture{
		tenants:    tenants,
		users:      users,
		middleware: NewAuthMiddleware(verifier, resolver, provisioner, nil, log),
	}
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"email":    "jdoe@acme.example.com",
		"tenantId": "acme.example.com",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
}

func TestAuthenticate_MissingTokenRejected(t *testing.T) {
	f := newAuthFixture()

	handlerCalled := false
	handler := f.middleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	}))

	req := httptest.NewRequest("GET", "/goals", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, handlerCalled)
}

func TestAuthenticate_InvalidTokenRejected(t *testing.T) {
	f := newAuthFixture()

	handler := f.middleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/goals", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_PopulatesAndClearsContext(t *testing.T) {
	f := newAuthFixture()

	tenant := &domain.Tenant{ID: "t-1", FQDN: "acme.example.com", IsActive: true}
	user := &domain.User{ID: "u-1", TenantID: "t-1", Email: "jdoe@acme.example.com"}
	f.tenants.On("FindActiveByFQDN", mock.Anything, "acme.example.com").Return(tenant, nil)
	f.users.On("FindByEmailAndTenant", mock.Anything, "jdoe@acme.example.com", "t-1").Return(user, nil)

	var captured *service.RequestContext
	handler := f.middleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = service.FromContext(r.Context())
		require.NotNil(t, captured)
		assert.Equal(t, "t-1", captured.Tenant().ID)
		assert.Equal(t, "u-1", captured.User().ID)
	}))

	req := httptest.NewRequest("GET", "/goals", nil)
	req.Header.Set("Authorization", mintBearer(t, validClaims()))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	// Контекст очищен после завершения обработки
	require.NotNil(t, captured)
	assert.Nil(t, captured.Tenant())
	assert.Nil(t, captured.User())
}

func TestAuthenticate_ProvisioningFailureKeepsAuthentication(t *testing.T) {
	f := newAuthFixture()

	f.tenants.On("FindActiveByFQDN", mock.Anything, "acme.example.com").
		Return(nil, errors.New(errors.ErrNotFound, "tenant not found"))
	f.tenants.On("FindByFQDN", mock.Anything, "acme.example.com").
		Return(nil, errors.New(errors.ErrInternal, "database unavailable"))

	handlerCalled := false
	handler := f.middleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		// Аутентификация устояла, но тенант-зависимый контекст деградировал
		assert.Nil(t, service.CurrentTenant(r.Context()))
		assert.Nil(t, service.CurrentUser(r.Context()))
	}))

	req := httptest.NewRequest("GET", "/goals", nil)
	req.Header.Set("Authorization", mintBearer(t, validClaims()))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, handlerCalled)
}

func TestAuthenticate_UserEmailOverride(t *testing.T) {
	f := newAuthFixture()

	tenant := &domain.Tenant{ID: "t-1", FQDN: "acme.example.com", IsActive: true}
	other := &domain.User{ID: "u-2", TenantID: "t-1", Email: "impersonated@acme.example.com"}
	f.tenants.On("FindActiveByFQDN", mock.Anything, "acme.example.com").Return(tenant, nil)
	f.users.On("FindByEmailAndTenant", mock.Anything, "impersonated@acme.example.com", "t-1").Return(other, nil)

	handler := f.middleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := service.CurrentUser(r.Context())
		require.NotNil(t, user)
		assert.Equal(t, "u-2", user.ID)
	}))

	req := httptest.NewRequest("GET", "/goals", nil)
	req.Header.Set("Authorization", mintBearer(t, validClaims()))
	req.Header.Set("X-User-Email", "Impersonated@acme.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	f.users.AssertNotCalled(t, "FindByEmailAndTenant", mock.Anything, "jdoe@acme.example.com", "t-1")
}

func TestAuthenticate_HostFallbackWhenTokenLacksTenant(t *testing.T) {
	f := newAuthFixture()

	// Токен без tenant claim отклоняется верификатором, поэтому фолбэк
	// на заголовки проверяется через claims с пустым результатом резолюции
	tenant := &domain.Tenant{ID: "t-1", FQDN: "acme.example.com", IsActive: true}
	f.tenants.On("FindActiveByFQDN", mock.Anything, "acme.example.com").Return(tenant, nil)
	f.users.On("FindByEmailAndTenant", mock.Anything, "jdoe@acme.example.com", "t-1").
		Return(&domain.User{ID: "u-1", TenantID: "t-1"}, nil)

	handler := f.middleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotNil(t, service.CurrentTenant(r.Context()))
	}))

	req := httptest.NewRequest("GET", "http://acme.example.com/goals", nil)
	req.Header.Set("Authorization", mintBearer(t, validClaims()))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
