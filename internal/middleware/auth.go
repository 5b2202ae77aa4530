package middleware

import (
	"context"
	"net/http"
	"strings"

	"PerfPulsePlatform/internal/domain"
	"PerfPulsePlatform/internal/pkg/token"
	"PerfPulsePlatform/internal/service"
	pkgerrors "PerfPulsePlatform/pkg/errors"
	"PerfPulsePlatform/pkg/logger"
	"PerfPulsePlatform/pkg/metrics"
)

// Заголовок переопределения личности действующего пользователя
// Применяется до личности из токена
const HeaderXUserEmail = "X-User-Email"

// AuthMiddleware выполняет конвейер аутентификации запроса:
// верификация токена, резолюция тенанта, провижининг и заполнение
// контекста запроса с гарантированной очисткой
type AuthMiddleware struct {
	verifier    *token.Verifier
	resolver    service.TenantResolver
	provisioner service.ProvisioningService
	metrics     *metrics.Metrics
	logger      logger.Logger
}

// NewAuthMiddleware создает новый middleware аутентификации
func NewAuthMiddleware(
	verifier *token.Verifier,
	resolver service.TenantResolver,
	provisioner service.ProvisioningService,
	m *metrics.Metrics,
	log logger.Logger,
) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:    verifier,
		resolver:    resolver,
		provisioner: provisioner,
		metrics:     m,
		logger:      log,
	}
}

// Authenticate проверяет bearer токен и наполняет контекст запроса
//
// Отказ верификации останавливает обработку без заполнения контекста.
// Сбои провижининга логируются, но не отменяют уже успешную
// аутентификацию: деградируют только тенант-зависимые возможности
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bearer, err := extractBearer(r)
		if err != nil {
			m.recordAuth("failure")
			m.logger.Warn("Missing or malformed Authorization header",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path))
			pkgerrors.SendErrorResponse(w, pkgerrors.New(pkgerrors.ErrUnauthorized, "authorization token required"))
			return
		}

		claims, err := m.verifier.Verify(bearer)
		if err != nil {
			m.recordAuth("failure")
			m.logger.Warn("Token verification failed",
				logger.Error(err),
				logger.String("path", r.URL.Path))
			pkgerrors.SendErrorResponse(w, pkgerrors.New(pkgerrors.ErrUnauthorized, "token verification failed"))
			return
		}
		m.recordAuth("success")

		// Переопределение личности действующего пользователя до личности из токена
		if override := strings.TrimSpace(r.Header.Get(HeaderXUserEmail)); override != "" {
			claims.Email = strings.ToLower(override)
		}

		tenant := m.resolveTenant(r, claims)
		user := m.resolveUser(r, tenant, claims)

		err = service.WithRequestContext(r.Context(), tenant, user, func(ctx context.Context) error {
			next.ServeHTTP(w, r.WithContext(ctx))
			return nil
		})
		if err != nil {
			m.logger.Error("Request handling failed", logger.Error(err))
		}
	})
}

// resolveTenant находит тенант по claims токена с фолбэком на заголовки
// Сбои резолюции и провижининга не прерывают запрос
func (m *AuthMiddleware) resolveTenant(r *http.Request, claims *domain.Claims) *domain.Tenant {
	fqdn := claims.TenantFQDN
	if fqdn == "" {
		headers := r.Header.Clone()
		if headers.Get(service.HeaderHost) == "" && r.Host != "" {
			headers.Set(service.HeaderHost, r.Host)
		}
		fqdn = m.resolver.ResolveFQDN(headers)
	}
	if fqdn == "" {
		m.recordResolution("absent")
		return nil
	}

	tenant, err := m.resolver.FindActive(r.Context(), fqdn)
	if err != nil {
		m.logger.Warn("Tenant lookup failed",
			logger.String("fqdn", fqdn),
			logger.Error(err))
		m.recordResolution("error")
		return nil
	}
	if tenant != nil {
		m.recordResolution("resolved")
		return tenant
	}

	tenant, err = m.provisioner.ProvisionTenant(r.Context(), fqdn)
	if err != nil {
		m.logger.Warn("Tenant provisioning failed",
			logger.String("fqdn", fqdn),
			logger.Error(err))
		m.recordResolution("error")
		return nil
	}
	if tenant == nil || !tenant.IsActive {
		m.recordResolution("absent")
		return nil
	}

	m.recordResolution("provisioned")
	return tenant
}

// resolveUser находит или создает действующего пользователя в рамках тенанта
// Сбои провижининга не отменяют аутентификацию
func (m *AuthMiddleware) resolveUser(r *http.Request, tenant *domain.Tenant, claims *domain.Claims) *domain.User {
	if tenant == nil {
		return nil
	}

	user, err := m.provisioner.ProvisionUser(r.Context(), tenant, claims)
	if err != nil {
		m.logger.Warn("User provisioning failed",
			logger.String("tenant_id", tenant.ID),
			logger.Error(err))
		return nil
	}
	return user
}

func (m *AuthMiddleware) recordAuth(result string) {
	if m.metrics != nil {
		m.metrics.RecordAuthAttempt(string(m.verifier.Mode()), result)
	}
}

func (m *AuthMiddleware) recordResolution(outcome string) {
	if m.metrics != nil {
		m.metrics.RecordTenantResolution(outcome)
	}
}

// extractBearer извлекает bearer токен из заголовка Authorization
func extractBearer(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", pkgerrors.New(pkgerrors.ErrUnauthorized, "missing Authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", pkgerrors.New(pkgerrors.ErrUnauthorized, "invalid Authorization header format")
	}

	return parts[1], nil
}
