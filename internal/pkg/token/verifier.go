package token

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgerrors "PerfPulsePlatform/pkg/errors"

	"PerfPulsePlatform/internal/domain"
)

// Mode представляет режим верификации токенов
type Mode string

// Определение режимов верификации
// В permissive режиме допускаются неподписанные токены и токены,
// подпись которых не совпадает с настроенным секретом
const (
	ModeStrict     Mode = "strict"
	ModePermissive Mode = "permissive"
)

// ErrVerificationFailed единый сигнал неудачной верификации
// Возвращается при любой причине отказа, чтобы вызывающая сторона
// не могла довериться частично валидному токену
var ErrVerificationFailed = pkgerrors.New(pkgerrors.ErrUnauthorized, "token verification failed")

// ResolveMode сводит три источника выбора режима в одно упорядоченное решение:
// 1. Явное значение конфигурации
// 2. Переменная окружения AUTH_MODE
// 3. Принадлежность профиля окружения списку permissive-профилей
func ResolveMode(explicit, envOverride, environment string, permissiveEnvironments []string) Mode {
	for _, value := range []string{explicit, envOverride} {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case string(ModeStrict):
			return ModeStrict
		case string(ModePermissive):
			return ModePermissive
		}
	}

	for _, env := range permissiveEnvironments {
		if strings.EqualFold(environment, env) {
			return ModePermissive
		}
	}

	return ModeStrict
}

// Verifier проверяет bearer токены и извлекает из них claims
type Verifier struct {
	secret []byte
	mode   Mode
}

// NewVerifier создает новый верификатор токенов
func NewVerifier(secret string, mode Mode) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		mode:   mode,
	}
}

// Mode возвращает режим верификации
func (v *Verifier) Mode() Mode {
	return v.mode
}

// Verify проверяет токен и возвращает нормализованный набор claims
// Expiry обязателен в обоих режимах и проверяется по текущему времени
// даже тогда, когда проверка подписи была пропущена
func (v *Verifier) Verify(tokenString string) (*domain.Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrVerificationFailed
	}

	rawClaims, err := v.decode(tokenString)
	if err != nil {
		return nil, ErrVerificationFailed
	}

	if err := checkExpiry(rawClaims); err != nil {
		return nil, ErrVerificationFailed
	}

	claims, err := NormalizeClaims(rawClaims)
	if err != nil {
		return nil, ErrVerificationFailed
	}

	return claims, nil
}

// decode разбирает токен согласно режиму верификации
func (v *Verifier) decode(tokenString string) (jwt.MapClaims, error) {
	if v.mode == ModeStrict {
		return v.decodeSigned(tokenString)
	}

	// В permissive режиме сначала пробуем распарсить токен с alg=none
	if claims, err := v.decodeUnsigned(tokenString); err == nil {
		return claims, nil
	}

	// Затем пробуем обычный подписанный токен
	if claims, err := v.decodeSigned(tokenString); err == nil {
		return claims, nil
	}

	// Последний fallback: декодируем сегмент payload напрямую, без проверки подписи
	// Тестовые и dev инструменты могут выпускать токены с другим ключом
	return decodePayloadSegment(tokenString)
}

// decodeSigned разбирает токен с обязательной проверкой HMAC подписи
func (v *Verifier) decodeSigned(tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	)

	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse signed token: %w", err)
	}

	return claims, nil
}

// decodeUnsigned разбирает токен с заявленным алгоритмом none
func (v *Verifier) decodeUnsigned(tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"none"}),
		jwt.WithExpirationRequired(),
	)

	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return jwt.UnsafeAllowNoneSignatureType, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse unsigned token: %w", err)
	}

	return claims, nil
}

// decodePayloadSegment декодирует сегмент payload без какой-либо проверки подписи
// base64url с нормализацией паддинга
func decodePayloadSegment(tokenString string) (jwt.MapClaims, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed token: expected 3 segments, got %d", len(parts))
	}

	payload := parts[1]
	if padding := len(payload) % 4; padding != 0 {
		payload += strings.Repeat("=", 4-padding)
	}

	decoded, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload segment: %w", err)
	}

	claims := jwt.MapClaims{}
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload segment: %w", err)
	}

	return claims, nil
}

// checkExpiry проверяет обязательность и актуальность expiry claim
func checkExpiry(claims jwt.MapClaims) error {
	exp, ok := claims["exp"]
	if !ok {
		return fmt.Errorf("token has no expiration claim")
	}

	var expiresAt int64
	switch value := exp.(type) {
	case float64:
		expiresAt = int64(value)
	case json.Number:
		parsed, err := value.Int64()
		if err != nil {
			return fmt.Errorf("invalid expiration claim: %w", err)
		}
		expiresAt = parsed
	default:
		return fmt.Errorf("invalid expiration claim type: %T", exp)
	}

	if time.Now().UTC().Unix() >= expiresAt {
		return fmt.Errorf("token is expired")
	}

	return nil
}
