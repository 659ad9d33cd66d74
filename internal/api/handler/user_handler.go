package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/docshare/identity-api/internal/core/domain"
	"github.com/docshare/identity-api/internal/core/pagination"
	"github.com/docshare/identity-api/internal/core/ports"
)

const msgUserDeleted = "user successfully deleted"

// UserHandler handles HTTP requests for user records.
type UserHandler struct {
	users ports.UserService
}

func NewUserHandler(users ports.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// --- Request / Response types ---

// updateRequest is the raw mutation payload. password must always be the
// caller's current password; unknown keys are dropped by binding.
type updateRequest struct {
	Email                string `json:"email"`
	Username             string `json:"username"`
	Password             string `json:"password"`
	FullName             string `json:"fullName"`
	Bio                  string `json:"bio"`
	NewPassword          string `json:"newPassword"`
	ConfirmationPassword string `json:"confirmationPassword"`
}

type countMeta struct {
	Count int64 `json:"count"`
}

type listResponse struct {
	Users    []*domain.User `json:"users"`
	MetaData any            `json:"metaData"`
}

type userResponse struct {
	User    *domain.User `json:"user"`
	Message string       `json:"message,omitempty"`
}

type searchResponse struct {
	Matches int64          `json:"matches"`
	Users   []*domain.User `json:"users"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// List handles GET /users.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Rows to skip"
// @Success      200     {object}  listResponse
// @Failure      401     {object}  map[string]string
// @Failure      406     {object}  map[string]any
// @Failure      503     {object}  map[string]string
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	page, err := pagination.ParseQuery(c.QueryParam("limit"), c.QueryParam("offset"))
	if err != nil {
		return err
	}

	res, err := h.users.List(c.Request().Context(), page)
	if err != nil {
		return err
	}

	resp := listResponse{Users: res.Users, MetaData: countMeta{Count: res.Count}}
	if res.Meta != nil {
		resp.MetaData = res.Meta
	}
	return c.JSON(http.StatusOK, resp)
}

// Get handles GET /users/:id.
//
// @Summary      Get a user by id
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User id"
// @Success      200  {object}  userResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	user, err := h.users.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: user})
}

// Update handles PUT /users/:id. The body must carry the caller's current
// password even when a valid bearer token is presented.
//
// @Summary      Update a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int            true  "User id"
// @Param        body  body      updateRequest  true  "Changes plus current password"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]any
// @Failure      404   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := requireSelfOrAdmin(c, id); err != nil {
		return err
	}

	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	res, err := h.users.Update(c.Request().Context(), id, ports.UpdateInput{
		Email:                req.Email,
		Username:             req.Username,
		Password:             req.Password,
		FullName:             req.FullName,
		Bio:                  req.Bio,
		NewPassword:          req.NewPassword,
		ConfirmationPassword: req.ConfirmationPassword,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: res.User, Message: res.Message})
}

// Delete handles DELETE /users/:id. Deleting an absent id still succeeds.
//
// @Summary      Delete a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User id"
// @Success      200  {object}  messageResponse
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := requireSelfOrAdmin(c, id); err != nil {
		return err
	}

	if err := h.users.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: msgUserDeleted})
}

// Search handles GET /users/search?q=.
//
// @Summary      Search users by email
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        q    query     string  true  "Case-insensitive email substring"
// @Success      200  {object}  searchResponse
// @Failure      404  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /users/search [get]
func (h *UserHandler) Search(c echo.Context) error {
	users, count, err := h.users.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, searchResponse{Matches: count, Users: users})
}
