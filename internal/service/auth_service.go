package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

var errInvalidCredentials = errorutil.NewUnauthorized("invalid credentials")

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	staff      repository.StaffRepository
	tokens     *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo  repository.UserRepository
	StaffRepo repository.StaffRepository
	Tokens    *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		staff:      deps.StaffRepo,
		tokens:     deps.Tokens,
		bcryptCost: cfg.BcryptCost,
	}
}

// RegisterUser creates an end-user account and signs them in.
func (s *AuthService) RegisterUser(ctx context.Context, name, email, password string) (*domain.User, domain.AccessToken, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	details := map[string]any{}
	if name == "" {
		details["name"] = "required"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		details["email"] = "must be a valid address"
	}
	if len(password) < auth.MinPasswordLength {
		details["password"] = "too short"
	}
	if len(details) > 0 {
		return nil, domain.AccessToken{}, errorutil.NewValidationError("invalid registration", details)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.AccessToken{}, errorutil.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.AccessToken{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, domain.AccessToken{}, err
	}
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, domain.AccessToken{}, err
	}

	token, err := s.tokens.Issue(user.ID, domain.SubjectTypeUser, "")
	if err != nil {
		return nil, domain.AccessToken{}, err
	}
	return user, token, nil
}

// LoginUser authenticates an end-user. Unknown emails and wrong passwords look the same.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, domain.AccessToken, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.AccessToken{}, errInvalidCredentials
		}
		return nil, domain.AccessToken{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, domain.AccessToken{}, errInvalidCredentials
	}
	if !user.Active() {
		return nil, domain.AccessToken{}, errorutil.NewForbidden("account suspended")
	}
	token, err := s.tokens.Issue(user.ID, domain.SubjectTypeUser, "")
	if err != nil {
		return nil, domain.AccessToken{}, err
	}
	return user, token, nil
}

// LoginStaff authenticates a staff member and returns a role-bearing token.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*domain.StaffMember, domain.AccessToken, error) {
	staff, err := s.staff.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.AccessToken{}, errInvalidCredentials
		}
		return nil, domain.AccessToken{}, err
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, domain.AccessToken{}, errInvalidCredentials
	}
	if !staff.Active {
		return nil, domain.AccessToken{}, errorutil.NewForbidden("account disabled")
	}
	token, err := s.tokens.Issue(staff.ID, domain.SubjectTypeStaff, staff.Role)
	if err != nil {
		return nil, domain.AccessToken{}, err
	}
	return staff, token, nil
}
