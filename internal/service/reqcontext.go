package service

import (
	"context"

	"PerfPulsePlatform/internal/domain"
	pkgerrors "PerfPulsePlatform/pkg/errors"
)

// RequestContext контейнер текущего тенанта и пользователя одного входящего запроса
// Живет только в рамках обработки этого запроса и очищается безусловно на выходе
// Отсутствие тенанта — валидное состояние: чтения деградируют до пустых результатов,
// записи завершаются ошибкой TENANT_REQUIRED
type RequestContext struct {
	tenant *domain.Tenant
	user   *domain.User
}

// Tenant возвращает текущий тенант или nil
func (rc *RequestContext) Tenant() *domain.Tenant {
	if rc == nil {
		return nil
	}
	return rc.tenant
}

// User возвращает текущего пользователя или nil
func (rc *RequestContext) User() *domain.User {
	if rc == nil {
		return nil
	}
	return rc.user
}

// Set устанавливает текущий тенант и пользователя
func (rc *RequestContext) Set(tenant *domain.Tenant, user *domain.User) {
	rc.tenant = tenant
	rc.user = user
}

// Clear очищает контекст запроса
// Вызывается через defer, чтобы гарантировать очистку на любом пути выхода
func (rc *RequestContext) Clear() {
	rc.tenant = nil
	rc.user = nil
}

// reqctxKey неэкспортируемый ключ для хранения RequestContext в context.Context
type reqctxKey struct{}

// NewContext возвращает контекст с установленным RequestContext
func NewContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, reqctxKey{}, rc)
}

// FromContext извлекает RequestContext из контекста
// Возвращает nil, если контекст запроса не установлен
func FromContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(reqctxKey{}).(*RequestContext); ok {
		return rc
	}
	return nil
}

// CurrentTenant возвращает текущий тенант запроса или nil
func CurrentTenant(ctx context.Context) *domain.Tenant {
	return FromContext(ctx).Tenant()
}

// CurrentUser возвращает текущего пользователя запроса или nil
func CurrentUser(ctx context.Context) *domain.User {
	return FromContext(ctx).User()
}

// RequireTenant возвращает текущий тенант или ошибку TENANT_REQUIRED
// Используется всеми мутирующими операциями
func RequireTenant(ctx context.Context) (*domain.Tenant, error) {
	tenant := CurrentTenant(ctx)
	if tenant == nil {
		return nil, pkgerrors.New(pkgerrors.ErrTenantRequired, "operation requires tenant context")
	}
	return tenant, nil
}

// WithRequestContext выполняет body с заполненным контекстом запроса
// Очистка контекста гарантируется через defer на любом пути выхода,
// включая панику внутри body — устаревший контекст не должен быть виден
// следующему запросу, обрабатываемому тем же воркером
func WithRequestContext(ctx context.Context, tenant *domain.Tenant, user *domain.User, body func(context.Context) error) error {
	rc := &RequestContext{}
	rc.Set(tenant, user)
	defer rc.Clear()

	return body(NewContext(ctx, rc))
}
