package auth

import (
	"errors"

	authsvc "certhub-backend/internal/application/auth"
	"certhub-backend/internal/middleware"
	"certhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

type Handlers struct {
	UserFinder authsvc.UserFinder
	Rdb        *redis.Client
	Config     middleware.SessionConfig
}

// Login POST /api/v1/auth/login
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req authsvc.LoginInput
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return response.Error(c, authsvc.ErrEmailPasswordRequired.Error(), fiber.StatusBadRequest, nil)
	}

	user, err := h.UserFinder.FindByEmailAndPassword(req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, authsvc.ErrEmailPasswordRequired):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
	case errors.Is(err, authsvc.ErrPendingApproval), errors.Is(err, authsvc.ErrAccountDisabled):
		return response.Error(c, err.Error(), fiber.StatusForbidden, nil)
	default:
		return err
	}

	sessionID := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:   user.UserID.String(),
		Fullname: user.Fullname,
		Email:    user.Email,
		Role:     user.Role,
	})
	if err := middleware.TrackUserSession(c.UserContext(), h.Rdb, user.UserID, sessionID); err != nil {
		return err
	}

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)

	middleware.Logger(c).Info().Str("user_id", user.UserID.String()).Str("role", user.Role).Msg("login")
	return response.Success(c, "Login successful", fiber.Map{
		"user": authsvc.SessionUserShape{
			UserID:   user.UserID.String(),
			Fullname: user.Fullname,
			Email:    user.Email,
			Role:     user.Role,
		},
	}, nil)
}

// Me GET /api/v1/auth/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	user, err := authsvc.VerifyUser(middleware.GetUser(c))
	if err != nil {
		middleware.Logger(c).Debug().Bool("cookie_present", c.Cookies(middleware.SessionCookieName) != "").Msg("auth/me: not authenticated")
		return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": user}, nil)
}

// Logout DELETE /api/v1/auth/logout
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	ctx := c.UserContext()

	if actor, ok := middleware.GetActor(c); ok && sessionID != "" {
		_ = middleware.UntrackUserSession(ctx, h.Rdb, actor.UserID, sessionID)
	}
	if sessionID != "" {
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sessionID).Err()
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.MaxAge = -1
	c.Cookie(&cookie)
	return response.Success(c, "Logged out successfully", nil, nil)
}
