package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/crmcore/authcore/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a SalesRep identity and returns a token for it.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  ErrorBody
// @Failure      429   {object}  ErrorBody
// @Failure      500   {object}  ErrorBody
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newAuthResponse(res))
}

// Login authenticates a user and returns a JWT token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  ErrorBody
// @Failure      401   {object}  ErrorBody
// @Failure      429   {object}  ErrorBody
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newAuthResponse(res))
}

// Validate reports whether a token is currently valid. It never fails.
//
// @Summary      Validate a token
// @Tags         auth
// @Produce      json
// @Param        token  query     string  false  "JWT to check"
// @Success      200    {boolean} bool
// @Router       /auth/validate [post]
func (h *AuthHandler) Validate(c echo.Context) error {
	return c.JSON(http.StatusOK, h.authService.Validate(c.QueryParam("token")))
}

// Me returns the identity behind the caller's token.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  identityResponse
// @Failure      401  {object}  ErrorBody
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	ac, err := actor(c)
	if err != nil {
		return err
	}

	me, err := h.authService.Me(c.Request().Context(), ac)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newIdentityResponse(me))
}

// UpdateMe edits the caller's own email and names.
//
// @Summary      Update own profile
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Profile fields"
// @Success      200   {object}  identityResponse
// @Failure      400   {object}  ErrorBody
// @Failure      401   {object}  ErrorBody
// @Router       /auth/me [patch]
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	ac, err := actor(c)
	if err != nil {
		return err
	}
	var req updateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	me, err := h.authService.UpdateOwnProfile(c.Request().Context(), ac, req.toDomain())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newIdentityResponse(me))
}

// ChangePassword rotates the caller's password.
//
// @Summary      Change own password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  ErrorBody
// @Failure      401   {object}  ErrorBody
// @Router       /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	ac, err := actor(c)
	if err != nil {
		return err
	}
	var req changePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err = h.authService.ChangePassword(c.Request().Context(), ac, ports.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "password changed"})
}

// Logout acknowledges the request. Tokens are stateless, so the caller's
// token stays valid until it expires.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  messageResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "logged out"})
}
