package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/crmcore/authcore/internal/core/domain"
	"github.com/crmcore/authcore/internal/core/ports"
)

// UserHandler exposes administrative identity management under /users.
type UserHandler struct {
	userService ports.UserService
}

func NewUserHandler(userService ports.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Create adds an identity with an explicit role.
//
// @Summary      Create user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "User details"
// @Success      201   {object}  identityResponse
// @Failure      400   {object}  ErrorBody
// @Failure      403   {object}  ErrorBody
// @Router       /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	ac, err := actor(c)
	if err != nil {
		return err
	}
	var req createUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	role, _ := domain.ParseRole(req.Role)

	created, err := h.userService.Create(c.Request().Context(), ac, ports.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newIdentityResponse(created))
}

// List returns a page of identities the caller may see.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page number (1-based)"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Param        role    query     string  false  "Filter by role"
// @Param        active  query     bool    false  "Filter by active flag"
// @Success      200     {object}  listUsersResponse
// @Failure      400     {object}  ErrorBody
// @Failure      403     {object}  ErrorBody
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	ac, err := actor(c)
	if err != nil {
		return err
	}
	var q listUsersQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	in := ports.ListUsersInput{Role: q.Role, Page: q.Page, Limit: q.Limit}
	if q.Active != "" {
		active, _ := strconv.ParseBool(q.Active)
		in.Active = &active
	}

	res, err := h.userService.List(c.Request().Context(), ac, in)
	if err != nil {
		return err
	}

	items := make([]identityResponse, 0, len(res.Items))
	for _, i := range res.Items {
		items = append(items, newIdentityResponse(i))
	}
	return c.JSON(http.StatusOK, listUsersResponse{
		Items:      items,
		Total:      res.Total,
		Page:       res.Page,
		Limit:      res.Limit,
		TotalPages: res.TotalPages,
	})
}

// Get returns a single identity.
//
// @Summary      Get user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  identityResponse
// @Failure      403  {object}  ErrorBody
// @Failure      404  {object}  ErrorBody
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	ac, err := actor(c)
	if err != nil {
		return err
	}
	identity, err := h.userService.Get(c.Request().Context(), ac, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newIdentityResponse(identity))
}

// UpdateProfile edits another identity's email and names.
//
// @Summary      Update user profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                true  "User ID"
// @Param        body  body      updateProfileRequest  true  "Profile fields"
// @Success      200   {object}  identityResponse
// @Failure      400   {object}  ErrorBody
// @Failure      403   {object}  ErrorBody
// @Failure      404   {object}  ErrorBody
// @Router       /users/{id} [patch]
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	ac, err := actor(c)
	if err != nil {
		return err
	}
	var req updateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	identity, err := h.userService.UpdateProfile(c.Request().Context(), ac, c.Param("id"), req.toDomain())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newIdentityResponse(identity))
}

// SetActive deactivates or reactivates an identity.
//
// @Summary      Set user active flag
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "User ID"
// @Param        body  body      setActiveRequest  true  "Active flag"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  ErrorBody
// @Failure      403   {object}  ErrorBody
// @Failure      404   {object}  ErrorBody
// @Router       /users/{id}/active [put]
func (h *UserHandler) SetActive(c echo.Context) error {
	ac, err := actor(c)
	if err != nil {
		return err
	}
	var req setActiveRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.userService.SetActive(c.Request().Context(), ac, c.Param("id"), *req.Active); err != nil {
		return err
	}
	msg := "user deactivated"
	if *req.Active {
		msg = "user activated"
	}
	return c.JSON(http.StatusOK, messageResponse{Message: msg})
}

// ChangeRole assigns a new role to an identity.
//
// @Summary      Change user role
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "User ID"
// @Param        body  body      changeRoleRequest  true  "New role"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  ErrorBody
// @Failure      403   {object}  ErrorBody
// @Failure      404   {object}  ErrorBody
// @Router       /users/{id}/role [put]
func (h *UserHandler) ChangeRole(c echo.Context) error {
	ac, err := actor(c)
	if err != nil {
		return err
	}
	var req changeRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	role, _ := domain.ParseRole(req.Role)
	if err := h.userService.ChangeRole(c.Request().Context(), ac, c.Param("id"), role); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "role changed"})
}
