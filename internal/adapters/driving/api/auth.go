package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"github.com/custodia-labs/bookchat/internal/core/domain"
)

const principalKey = "principal"

// authenticate verifies the bearer token and stores the caller's principal.
func (s *Server) authenticate(c *fiber.Ctx) error {
	raw, err := bearerToken(c)
	if err != nil {
		return err
	}
	principal, err := ParseToken(raw, s.secret)
	if err != nil {
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// require rejects callers whose role lacks perm.
func (s *Server) require(perm domain.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !principalOf(c).Role.Can(perm) {
			return fmt.Errorf("%w: role cannot perform this action", domain.ErrForbidden)
		}
		return c.Next()
	}
}

func principalOf(c *fiber.Ctx) domain.Principal {
	p, _ := c.Locals(principalKey).(domain.Principal)
	return p
}

func bearerToken(c *fiber.Ctx) (string, error) {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		return "", fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized)
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: malformed authorization header", domain.ErrUnauthorized)
	}
	return strings.TrimSpace(token), nil
}

// ParseToken verifies an HS256 token and extracts its principal.
// Expiry is enforced when the token carries an "exp" claim.
func ParseToken(raw string, secret []byte) (domain.Principal, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	id, err := claimID(claims["id"])
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	roleName, _ := claims["role"].(string)
	role, ok := domain.ParseRole(roleName)
	if !ok {
		return domain.Principal{}, fmt.Errorf("%w: unknown role %q", domain.ErrUnauthorized, roleName)
	}
	return domain.Principal{UserID: id, Role: role}, nil
}

func claimID(v any) (int64, error) {
	switch id := v.(type) {
	case float64:
		if id <= 0 || id != float64(int64(id)) {
			return 0, fmt.Errorf("invalid id claim %v", id)
		}
		return int64(id), nil
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid id claim %q", id)
		}
		return n, nil
	default:
		return 0, errors.New("missing id claim")
	}
}

// SignToken issues an HS256 token for principal. Used by `bookchat token`
// and tests; production tokens come from the identity service.
func SignToken(principal domain.Principal, secret []byte, claims jwt.MapClaims) (string, error) {
	if claims == nil {
		claims = jwt.MapClaims{}
	}
	claims["id"] = principal.UserID
	claims["role"] = principal.Role.String()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
