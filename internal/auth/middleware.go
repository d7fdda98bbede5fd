package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const principalKey = "auth_principal"

// TechnicianLookup resolves technicians so tokens of removed or inactive
// technicians are refused.
type TechnicianLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.Technician, error)
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens      *TokenManager
	technicians TechnicianLookup
}

// NewAuthMiddleware constructs middleware. technicians may be nil.
func NewAuthMiddleware(tokens *TokenManager, technicians TechnicianLookup) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, technicians: technicians}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	principal, err := claims.Principal()
	if err != nil {
		return apperrors.NewUnauthorized(err.Error())
	}

	if principal.Role == domain.RoleTechnician && m.technicians != nil {
		tech, err := m.technicians.GetByID(c.UserContext(), principal.UserID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewUnauthorized("technician not found")
			}
			return apperrors.MapError(err)
		}
		if !tech.Active {
			return apperrors.NewUnauthorized("technician inactive")
		}
		principal.Name = tech.Name
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (domain.Principal, bool) {
	principal, ok := c.Locals(principalKey).(domain.Principal)
	return principal, ok
}
