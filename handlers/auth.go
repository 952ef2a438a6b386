package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"tradie_legal_go/db"
	"tradie_legal_go/middleware"
	"tradie_legal_go/models"
	"tradie_legal_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type registerRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Trade    string `json:"trade"`
	State    string `json:"state"`
	ABN      string `json:"abn"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// RegisterHandler creates a client account and opens a session
// POST /api/auth/register
func RegisterHandler(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.FullName == "" || req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Name and email are required")
	}
	if len(req.Password) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "Password must be at least 8 characters")
	}
	if req.State != "" && !models.IsValidAustralianState(req.State) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid state code")
	}

	var existing models.User
	if err := db.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return echo.NewHTTPError(http.StatusConflict, "An account with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return serviceError(err)
	}

	hash, err := services.HashPassword(req.Password)
	if err != nil {
		return serviceError(err)
	}

	user := models.User{
		FullName: req.FullName,
		Email:    req.Email,
		Password: hash,
		Phone:    req.Phone,
		Trade:    req.Trade,
		State:    req.State,
		Role:     models.RoleClient,
		IsActive: true,
	}
	if req.ABN != "" {
		user.ABN = &req.ABN
	}
	if err := db.DB.Create(&user).Error; err != nil {
		return serviceError(err)
	}

	// Link any applications the user submitted before registering
	db.DB.Model(&models.Application{}).
		Where("email = ? AND user_id IS NULL", user.Email).
		Update("user_id", user.ID)

	session, err := services.CreateSession(db.DB, user.ID, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusCreated, authResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      &user,
	})
}

// LoginHandler verifies credentials and opens a session
// POST /api/auth/login
func LoginHandler(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := db.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	if !services.CheckPassword(req.Password, user.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}
	if !user.IsActive {
		return echo.NewHTTPError(http.StatusUnauthorized, "Account is disabled")
	}

	session, err := services.CreateSession(db.DB, user.ID, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return serviceError(err)
	}

	now := time.Now()
	db.DB.Model(&user).Update("last_login_at", now)

	return c.JSON(http.StatusOK, authResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      &user,
	})
}

// LogoutHandler deletes the current session
// POST /api/auth/logout
func LogoutHandler(c echo.Context) error {
	session := middleware.GetCurrentSession(c)
	if session != nil {
		if err := services.DeleteSession(db.DB, session.Token); err != nil {
			return serviceError(err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// MeHandler returns the authenticated user
// GET /api/auth/me
func MeHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}
	return c.JSON(http.StatusOK, user)
}
