package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bar-table-reservation/internal/config"
	"github.com/iliyamo/bar-table-reservation/internal/model"
	"github.com/iliyamo/bar-table-reservation/internal/repository"
	"github.com/iliyamo/bar-table-reservation/internal/utils"
)

// StaffStore persists staff accounts.
type StaffStore interface {
	CreateStaff(ctx context.Context, s *model.Staff) error
	GetStaffByEmail(ctx context.Context, email string) (model.Staff, error)
}

// AuthHandler bundles dependencies for staff login and account creation.
type AuthHandler struct {
	Cfg   config.Config
	Staff StaffStore
}

func NewAuthHandler(cfg config.Config, staff StaffStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Staff: staff}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type staffPart struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	BarID string `json:"bar_id,omitempty"`
}

type loginResp struct {
	Staff  staffPart         `json:"staff"`
	Access utils.AccessToken `json:"access"`
}

// Login verifies credentials and issues an access token.  Unknown
// accounts and wrong passwords get the same answer.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return badRequest(c, "email/password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	st, err := h.Staff.GetStaffByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		c.Logger().Error(err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage unavailable", "code": "storage_unavailable"})
	}
	if err != nil || !st.IsActive || !utils.VerifyPassword(st.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials", "code": "unauthorized"})
	}

	tok, err := utils.NewAccessToken(h.Cfg.JWTSecret, st.ID, st.Role, st.BarID, h.Cfg.AccessTTLMin)
	if err != nil {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token issue failed", "code": "internal"})
	}
	return c.JSON(http.StatusOK, loginResp{
		Staff:  staffPart{ID: st.ID, Email: st.Email, Role: st.Role, BarID: st.BarID},
		Access: tok,
	})
}

type createStaffReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	BarID    string `json:"bar_id"`
}

// CreateStaff handles POST /v1/admin/staff.  STAFF accounts must name
// their bar.
func (h *AuthHandler) CreateStaff(c echo.Context) error {
	var req createStaffReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || len(req.Password) < 8 {
		return badRequest(c, "email and a password of at least 8 characters are required")
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = model.RoleStaff
	}
	if role != model.RoleStaff && role != model.RoleAdmin {
		return badRequest(c, "role must be STAFF or ADMIN")
	}
	barID := strings.TrimSpace(req.BarID)
	if role == model.RoleStaff && barID == "" {
		return badRequest(c, "bar_id is required for STAFF")
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash failed", "code": "internal"})
	}
	st := model.Staff{
		ID:           uuid.NewString(),
		BarID:        barID,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := h.Staff.CreateStaff(c.Request().Context(), &st); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered", "code": "duplicate"})
		}
		c.Logger().Error(err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage unavailable", "code": "storage_unavailable"})
	}
	return c.JSON(http.StatusCreated, staffPart{ID: st.ID, Email: st.Email, Role: st.Role, BarID: st.BarID})
}
