package token

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"PerfPulsePlatform/internal/domain"
)

// AdminRoleMarker маркер роли администратора в списке ролей токена
const AdminRoleMarker = "ADMIN"

// NormalizeClaims приводит сырые claims токена к каноническому виду
// Разрешает алиасы полей: username/name для имени пользователя,
// tenantId/tenant_id (строка или число) для идентификатора тенанта
// Email и идентификатор тенанта обязательны
func NormalizeClaims(raw jwt.MapClaims) (*domain.Claims, error) {
	email := strings.TrimSpace(stringClaim(raw, "email"))
	if email == "" {
		return nil, fmt.Errorf("email claim is required")
	}

	tenant := tenantClaim(raw)
	if tenant == "" {
		return nil, fmt.Errorf("tenant claim is required")
	}

	username := strings.TrimSpace(stringClaim(raw, "username"))
	if username == "" {
		username = strings.TrimSpace(stringClaim(raw, "name"))
	}
	if username == "" {
		// Имя пользователя выводится из локальной части email
		username = emailLocalPart(email)
	}

	return &domain.Claims{
		Username:    username,
		Email:       email,
		TenantFQDN:  tenant,
		Roles:       stringSliceClaim(raw, "roles"),
		Permissions: stringSliceClaim(raw, "permissions"),
	}, nil
}

// emailLocalPart возвращает текст до символа @
func emailLocalPart(email string) string {
	if at := strings.Index(email, "@"); at >= 0 {
		return email[:at]
	}
	return email
}

// stringClaim извлекает строковый claim
func stringClaim(raw jwt.MapClaims, key string) string {
	if value, ok := raw[key].(string); ok {
		return value
	}
	return ""
}

// tenantClaim извлекает идентификатор тенанта, разрешая алиасы и типы
// Допускаются camelCase и snake_case ключи со строковым или числовым значением
func tenantClaim(raw jwt.MapClaims) string {
	for _, key := range []string{"tenantId", "tenant_id"} {
		value, ok := raw[key]
		if !ok {
			continue
		}

		switch v := value.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			return strconv.FormatInt(int64(v), 10)
		case json.Number:
			return v.String()
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		}
	}
	return ""
}

// stringSliceClaim извлекает claim-список строк
func stringSliceClaim(raw jwt.MapClaims, key string) []string {
	value, ok := raw[key]
	if !ok {
		return nil
	}

	switch list := value.(type) {
	case []string:
		return list
	case []interface{}:
		var result []string
		for _, item := range list {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	}
	return nil
}
