package httpapi

import (
	"regexp"

	"github.com/gofiber/fiber/v2"

	authsvc "conversation-runtime/server/internal/auth"
	"conversation-runtime/server/internal/errors"
	"conversation-runtime/server/internal/models"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validateUserSignup(req *models.UserSignup) error {
	if req.Email == "" || !emailPattern.MatchString(req.Email) {
		return errors.New(errors.ErrValidationFailed, "a valid email is required")
	}
	if len(req.Password) < 8 {
		return errors.New(errors.ErrValidationFailed, "password must be at least 8 characters")
	}
	if len(req.FullName) < 2 {
		return errors.New(errors.ErrValidationFailed, "full name must be at least 2 characters")
	}
	return nil
}

func validateUserCredentials(req *models.UserCredentials) error {
	if req.Email == "" || !emailPattern.MatchString(req.Email) {
		return errors.New(errors.ErrValidationFailed, "a valid email is required")
	}
	if len(req.Password) < 8 {
		return errors.New(errors.ErrValidationFailed, "password must be at least 8 characters")
	}
	return nil
}

func validateUserUpdate(req *models.UserUpdate) error {
	if req.FullName != "" && len(req.FullName) < 2 {
		return errors.New(errors.ErrValidationFailed, "full name must be at least 2 characters")
	}
	return nil
}

func toUserProfile(u *models.User) models.UserProfile {
	return models.UserProfile{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
		LastLogin: u.LastLogin,
	}
}

// handleSignup handles POST /api/auth/signup.
func (a *App) handleSignup(c *fiber.Ctx) error {
	var req models.UserSignup
	if err := c.BodyParser(&req); err != nil {
		return errors.New(errors.ErrBadRequest, "invalid request body")
	}
	if err := validateUserSignup(&req); err != nil {
		return err
	}

	user, err := a.Auth.Signup(&req)
	if err != nil {
		return err
	}

	_, token, err := a.Auth.Login(&models.UserCredentials{Email: req.Email, Password: req.Password}, string(c.Request().Header.UserAgent()), c.IP())
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(models.AuthResponse{User: toUserProfile(user), Token: token})
}

// handleLogin handles POST /api/auth/login.
func (a *App) handleLogin(c *fiber.Ctx) error {
	var req models.UserCredentials
	if err := c.BodyParser(&req); err != nil {
		return errors.New(errors.ErrBadRequest, "invalid request body")
	}
	if err := validateUserCredentials(&req); err != nil {
		return err
	}

	user, token, err := a.Auth.Login(&req, string(c.Request().Header.UserAgent()), c.IP())
	if err != nil {
		return err
	}

	return c.JSON(models.AuthResponse{User: toUserProfile(user), Token: token})
}

// handleLogout handles POST /api/auth/logout.
func (a *App) handleLogout(c *fiber.Ctx) error {
	token, err := authsvc.ExtractBearerToken(c.Get("Authorization"))
	if err != nil {
		return err
	}
	if err := a.Auth.Logout(token); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleLogoutAll handles POST /api/auth/logout-all.
func (a *App) handleLogoutAll(c *fiber.Ctx) error {
	user, err := authsvc.GetUserFromContext(c)
	if err != nil {
		return err
	}
	if err := a.Auth.LogoutAll(user.ID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleDeactivateAccount handles DELETE /api/auth/me: it retires the
// caller's account and revokes every bearer token issued to it.
func (a *App) handleDeactivateAccount(c *fiber.Ctx) error {
	user, err := authsvc.GetUserFromContext(c)
	if err != nil {
		return err
	}
	if err := a.Auth.DeactivateAccount(user.ID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleGetProfile handles GET /api/auth/me.
func (a *App) handleGetProfile(c *fiber.Ctx) error {
	user, err := authsvc.GetUserFromContext(c)
	if err != nil {
		return err
	}
	profile, err := a.Auth.Profile(user.ID)
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

// handleUpdateProfile handles PUT /api/auth/profile.
func (a *App) handleUpdateProfile(c *fiber.Ctx) error {
	user, err := authsvc.GetUserFromContext(c)
	if err != nil {
		return err
	}
	var req models.UserUpdate
	if err := c.BodyParser(&req); err != nil {
		return errors.New(errors.ErrBadRequest, "invalid request body")
	}
	if err := validateUserUpdate(&req); err != nil {
		return err
	}
	if err := a.Auth.UpdateProfile(user.ID, &req); err != nil {
		return err
	}
	profile, err := a.Auth.Profile(user.ID)
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

// handleCheckEmail handles POST /api/auth/check-email, used by a signup
// form to tell the caller whether an address is already registered.
func (a *App) handleCheckEmail(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return errors.New(errors.ErrBadRequest, "invalid request body")
	}
	if req.Email == "" || !emailPattern.MatchString(req.Email) {
		return errors.New(errors.ErrValidationFailed, "a valid email is required")
	}
	exists, err := a.History.CheckEmailExists(req.Email)
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseError)
	}
	return c.JSON(fiber.Map{"exists": exists})
}
