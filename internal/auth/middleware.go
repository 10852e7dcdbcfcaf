package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal is the authenticated caller. Exactly one of User and Staff is set.
type Principal struct {
	SubjectType domain.SubjectType
	User        *domain.User
	Staff       *domain.StaffMember
}

// ID returns the subject's identifier.
func (p *Principal) ID() string {
	switch {
	case p == nil:
		return ""
	case p.User != nil:
		return p.User.ID
	case p.Staff != nil:
		return p.Staff.ID
	}
	return ""
}

// UserLookup loads end-users by id.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// StaffLookup loads staff members by id.
type StaffLookup interface {
	GetByID(ctx context.Context, id string) (*domain.StaffMember, error)
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	users  UserLookup
	staff  StaffLookup
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users UserLookup, staff StaffLookup) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, staff: staff}
}

// Handle rejects requests without a valid bearer token.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return errorutil.NewUnauthorized("missing authorization header")
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return errorutil.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.Parse(strings.TrimSpace(token))
	if err != nil {
		return errorutil.NewUnauthorized("invalid token")
	}

	principal := &Principal{SubjectType: claims.Subject}
	ctx := c.UserContext()

	switch claims.Subject {
	case domain.SubjectTypeUser:
		user, err := m.users.GetByID(ctx, claims.SubjectID)
		if err != nil {
			return lookupError(err, "user not found")
		}
		if !user.Active() {
			return errorutil.NewForbidden("account suspended")
		}
		principal.User = user
	case domain.SubjectTypeStaff:
		staff, err := m.staff.GetByID(ctx, claims.SubjectID)
		if err != nil {
			return lookupError(err, "staff not found")
		}
		if !staff.Active {
			return errorutil.NewForbidden("account disabled")
		}
		principal.Staff = staff
	default:
		return errorutil.NewUnauthorized("unknown subject")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

func lookupError(err error, notFound string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errorutil.NewUnauthorized(notFound)
	}
	return errorutil.MapError(err)
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	principal, ok := c.Locals(principalKey).(*Principal)
	return principal, ok && principal != nil
}
