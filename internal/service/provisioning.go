package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"PerfPulsePlatform/internal/domain"
	"PerfPulsePlatform/internal/pkg/token"
	"PerfPulsePlatform/internal/repository"
	pkgerrors "PerfPulsePlatform/pkg/errors"
	"PerfPulsePlatform/pkg/logger"
)

// ProvisioningService создает тенантов и пользователей на лету при первом обращении
// Обе операции идемпотентны: повторный вызов с теми же данными возвращает
// существующую запись, гонка на создании разрешается повторной выборкой
type ProvisioningService interface {
	ProvisionTenant(ctx context.Context, fqdn string) (*domain.Tenant, error)
	ProvisionUser(ctx context.Context, tenant *domain.Tenant, claims *domain.Claims) (*domain.User, error)
}

// Provisioner реализация ProvisioningService
type Provisioner struct {
	tenantRepository    repository.TenantRepository
	userRepository      repository.UserRepository
	autoProvisionTenant bool
	autoProvisionUser   bool
	logger              logger.Logger
}

// NewProvisioner создает новый сервис провижининга
func NewProvisioner(
	tenantRepository repository.TenantRepository,
	userRepository repository.UserRepository,
	autoProvisionTenant bool,
	autoProvisionUser bool,
	log logger.Logger,
) ProvisioningService {
	return &Provisioner{
		tenantRepository:    tenantRepository,
		userRepository:      userRepository,
		autoProvisionTenant: autoProvisionTenant,
		autoProvisionUser:   autoProvisionUser,
		logger:              log,
	}
}

// ProvisionTenant находит тенант по FQDN или создает новый, если включено
// автосоздание. Отсутствующий тенант при выключенном автосоздании — (nil, nil)
func (p *Provisioner) ProvisionTenant(ctx context.Context, fqdn string) (*domain.Tenant, error) {
	fqdn = strings.ToLower(strings.TrimSpace(fqdn))
	if fqdn == "" {
		return nil, nil
	}

	tenant, err := p.tenantRepository.FindByFQDN(ctx, fqdn)
	if err == nil {
		return tenant, nil
	}
	if !pkgerrors.Is(err, pkgerrors.ErrNotFound) {
		return nil, err
	}

	if !p.autoProvisionTenant {
		return nil, nil
	}

	now := time.Now().UTC()
	tenant = &domain.Tenant{
		ID:        uuid.New().String(),
		FQDN:      fqdn,
		Name:      fqdn,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := p.tenantRepository.Create(ctx, tenant); err != nil {
		// Параллельный запрос успел создать тенант первым
		if pkgerrors.Is(err, pkgerrors.ErrConflict) {
			return p.tenantRepository.FindByFQDN(ctx, fqdn)
		}
		return nil, err
	}

	p.logger.Info("Tenant provisioned",
		logger.String("tenant_id", tenant.ID),
		logger.String("fqdn", fqdn))

	return tenant, nil
}

// ProvisionUser находит пользователя по email в рамках тенанта или создает
// нового, если включено автосоздание. Роль ADMIN выдается только при наличии
// соответствующего маркера в claims токена
func (p *Provisioner) ProvisionUser(ctx context.Context, tenant *domain.Tenant, claims *domain.Claims) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.ErrValidation, "email claim is required")
	}

	user, err := p.userRepository.FindByEmailAndTenant(ctx, email, tenant.ID)
	if err == nil {
		return user, nil
	}
	if !pkgerrors.Is(err, pkgerrors.ErrNotFound) {
		return nil, err
	}

	if !p.autoProvisionUser {
		return nil, nil
	}

	role := domain.RoleUser
	if claims.HasRole(token.AdminRoleMarker) {
		role = domain.RoleAdmin
	}

	now := time.Now().UTC()
	user = &domain.User{
		ID:        uuid.New().String(),
		TenantID:  tenant.ID,
		Email:     email,
		FirstName: displayNameFromClaims(claims, email),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := p.userRepository.Create(ctx, user); err != nil {
		// Гонка на создание пользователя: возвращаем победителя
		if pkgerrors.Is(err, pkgerrors.ErrConflict) {
			return p.userRepository.FindByEmailAndTenant(ctx, email, tenant.ID)
		}
		return nil, err
	}

	p.logger.Info("User provisioned",
		logger.String("user_id", user.ID),
		logger.String("tenant_id", tenant.ID),
		logger.String("role", string(role)))

	return user, nil
}

// displayNameFromClaims выбирает имя из username токена,
// иначе из локальной части email
func displayNameFromClaims(claims *domain.Claims, email string) string {
	if name := strings.TrimSpace(claims.Username); name != "" {
		return name
	}
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
