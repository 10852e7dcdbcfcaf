package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	defaultActivityLimit = 200
	maxActivityLimit     = 1000
)

// StaffHandler exposes staff login and the activity log.
type StaffHandler struct {
	auth     *service.AuthService
	activity *service.ActivityService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService, activity *service.ActivityService) *StaffHandler {
	return &StaffHandler{auth: authService, activity: activity}
}

// Login handles POST /auth/staff/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return errorutil.NewValidationError("email and password required", nil)
	}

	staff, token, err := h.auth.LoginStaff(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"staff": dto.StaffResponse{ID: staff.ID, Name: staff.Name, Email: staff.Email, Role: staff.Role},
			"auth":  dto.NewAuthResponse(token),
		},
	})
}

// Activity handles GET /admin/activity?limit=.
func (h *StaffHandler) Activity(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultActivityLimit)
	if limit <= 0 || limit > maxActivityLimit {
		return errorutil.NewValidationError("limit out of range", map[string]any{"limit": c.Query("limit"), "max": maxActivityLimit})
	}

	entries, err := h.activity.Recent(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewActivityResponse(entries)})
}
