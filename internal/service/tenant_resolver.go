package service

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"PerfPulsePlatform/internal/domain"
	"PerfPulsePlatform/internal/repository"
	"PerfPulsePlatform/pkg/logger"
)

// Заголовки, из которых выводится FQDN тенанта, в порядке приоритета
const (
	HeaderHost           = "Host"
	HeaderXForwardedHost = "X-Forwarded-Host"
	HeaderOrigin         = "Origin"
	HeaderForwarded      = "Forwarded"
	HeaderXTenantID      = "X-Tenant-Id"
)

// TenantResolver выводит тенант из метаданных запроса
// Стратегии применяются по приоритету до первого непустого совпадения
// Резолюция не зависит от токена и требует активного тенанта
type TenantResolver interface {
	Resolve(ctx context.Context, headers http.Header) (*domain.Tenant, error)
	ResolveFQDN(headers http.Header) string
	FindActive(ctx context.Context, fqdn string) (*domain.Tenant, error)
}

// Resolver реализация TenantResolver с кэшем поверх репозитория
type Resolver struct {
	tenantRepository repository.TenantRepository
	tenantCache      repository.TenantCache
	cacheTTL         time.Duration
	logger           logger.Logger
}

// NewTenantResolver создает новый резолвер тенантов
// tenantCache может быть nil — тогда каждый запрос идет в репозиторий
func NewTenantResolver(
	tenantRepository repository.TenantRepository,
	tenantCache repository.TenantCache,
	cacheTTL time.Duration,
	log logger.Logger,
) TenantResolver {
	return &Resolver{
		tenantRepository: tenantRepository,
		tenantCache:      tenantCache,
		cacheTTL:         cacheTTL,
		logger:           log,
	}
}

// Resolve выводит активный тенант из заголовков запроса
// Отсутствующий или неактивный тенант возвращается как (nil, nil) —
// это не ошибка, вызывающая сторона трактует его как "нет тенанта"
func (r *Resolver) Resolve(ctx context.Context, headers http.Header) (*domain.Tenant, error) {
	fqdn := r.ResolveFQDN(headers)
	if fqdn == "" {
		return nil, nil
	}

	return r.FindActive(ctx, fqdn)
}

// ResolveFQDN выводит FQDN из заголовков без обращения к хранилищу
// Каждая стратегия отбрасывает порт и приводит хост к нижнему регистру
func (r *Resolver) ResolveFQDN(headers http.Header) string {
	// 1. Заголовок Host
	if host := normalizeHost(headers.Get(HeaderHost)); host != "" {
		return host
	}

	// 2. X-Forwarded-Host (первый элемент списка)
	if forwarded := headers.Get(HeaderXForwardedHost); forwarded != "" {
		first := strings.Split(forwarded, ",")[0]
		if host := normalizeHost(first); host != "" {
			return host
		}
	}

	// 3. Origin как URI
	if origin := headers.Get(HeaderOrigin); origin != "" {
		if parsed, err := url.Parse(origin); err == nil {
			if host := normalizeHost(parsed.Host); host != "" {
				return host
			}
		}
	}

	// 4. Параметр host= заголовка Forwarded
	if forwarded := headers.Get(HeaderForwarded); forwarded != "" {
		if host := normalizeHost(forwardedHostParam(forwarded)); host != "" {
			return host
		}
	}

	// 5. Явный override-заголовок с FQDN, для local/dev окружений
	if override := normalizeHost(headers.Get(HeaderXTenantID)); override != "" {
		return override
	}

	return ""
}

// FindActive ищет активный тенант по FQDN, сначала в кэше, затем в репозитории
func (r *Resolver) FindActive(ctx context.Context, fqdn string) (*domain.Tenant, error) {
	fqdn = strings.ToLower(strings.TrimSpace(fqdn))
	if fqdn == "" {
		return nil, nil
	}

	// Кэш обслуживает только попадания; любые ошибки кэша деградируют в репозиторий
	if r.tenantCache != nil {
		if tenant, err := r.tenantCache.Get(ctx, fqdn); err == nil && tenant != nil {
			if !tenant.IsActive {
				return nil, nil
			}
			return tenant, nil
		}
	}

	tenant, err := r.tenantRepository.FindActiveByFQDN(ctx, fqdn)
	if err != nil {
		// Неактивный или несуществующий тенант — просто "нет тенанта"
		r.logger.Debug("Tenant not resolved",
			logger.String("fqdn", fqdn),
			logger.Error(err))
		return nil, nil
	}

	if r.tenantCache != nil {
		if err := r.tenantCache.Set(ctx, tenant, r.cacheTTL); err != nil {
			r.logger.Warn("Failed to cache resolved tenant",
				logger.String("fqdn", fqdn),
				logger.Error(err))
		}
	}

	return tenant, nil
}

// normalizeHost отбрасывает порт и приводит хост к нижнему регистру
func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}

	// Отбрасываем порт, если он есть
	if colon := strings.LastIndex(host, ":"); colon >= 0 && !strings.Contains(host[colon:], "]") {
		host = host[:colon]
	}

	return strings.ToLower(host)
}

// forwardedHostParam извлекает параметр host= из заголовка Forwarded
// Кавычки вокруг значения отбрасываются
func forwardedHostParam(forwarded string) string {
	for _, segment := range strings.FieldsFunc(forwarded, func(r rune) bool {
		return r == ';' || r == ','
	}) {
		segment = strings.TrimSpace(segment)
		if len(segment) > 5 && strings.EqualFold(segment[:5], "host=") {
			return strings.Trim(segment[5:], `"`)
		}
	}
	return ""
}
