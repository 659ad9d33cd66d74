package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/docshare/identity-api/internal/core/domain"
	"github.com/docshare/identity-api/internal/core/ports"
)

type AuthHandler struct {
	users ports.UserService
}

func NewAuthHandler(users ports.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

type signupRequest struct {
	Email                string `json:"email" validate:"required"`
	Username             string `json:"username" validate:"required"`
	Password             string `json:"password" validate:"required"`
	ConfirmationPassword string `json:"confirmationPassword"`
}

// loginRequest is not validated. Every login, complete or not, goes through
// the credential check so failures stay indistinguishable.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token   string       `json:"token"`
	User    *domain.User `json:"user,omitempty"`
	Message string       `json:"message"`
}

// Signup creates a new account and returns a session token for it.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Signup form"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]any
// @Failure      503   {object}  map[string]string
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.users.Signup(c.Request().Context(), ports.SignupInput{
		Email:                req.Email,
		Username:             req.Username,
		Password:             req.Password,
		ConfirmationPassword: req.ConfirmationPassword,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, authResponse{Token: res.Token, User: res.User, Message: res.Message})
}

// Login authenticates a user and returns a session token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	res, err := h.users.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, authResponse{Token: res.Token, Message: res.Message})
}
