package server

import (
	"net/url"
	"strings"
	"time"

	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registrationRequest struct {
	Username  string `json:"username" form:"username"`
	Email     string `json:"email" form:"email"`
	Password  string `json:"password" form:"password"`
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	Next     string `json:"next" form:"next"`
}

// LoginResponse is returned on a successful login.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
	Next      string       `json:"next"`
}

// RegistrationForm handles GET /auth/registration/
// @Summary Registration form
// @Tags auth
// @Produce json
// @Success 200 {object} registrationRequest
// @Router /auth/registration/ [get]
func (s *Server) RegistrationForm(c *fiber.Ctx) error {
	return c.JSON(registrationRequest{})
}

// Register handles POST /auth/registration/
// @Summary Create an account
// @Description Registers the user and sends them to the login page
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body registrationRequest true "Account fields"
// @Success 302 {object} models.RedirectResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/registration/ [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registrationRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}
	if _, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}); err != nil {
		return respondError(c, err)
	}
	return models.RespondWithRedirect(c, service.LoginPath)
}

// LoginForm handles GET /auth/login/
// @Summary Login form
// @Tags auth
// @Produce json
// @Param next query string false "Local path to return to"
// @Success 200 {object} object{next=string}
// @Router /auth/login/ [get]
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"next": safeNext(c.Query("next"))})
}

// Login handles POST /auth/login/
// @Summary Log in
// @Description Returns a bearer token and sets it as an HTTP-only cookie
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body loginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login/ [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}
	if req.Next == "" {
		req.Next = c.Query("next")
	}

	user, err := s.userService.Authenticate(c.UserContext(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}

	token, claims, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.AuthCookie,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt,
		HTTPOnly: true,
		Secure:   s.config.Env == "production",
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	next := safeNext(req.Next)
	if next == "" {
		next = service.ProfilePath(user.Username)
	}
	return c.JSON(LoginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt,
		User:      user,
		Next:      next,
	})
}

// Logout handles POST /auth/logout/
// @Summary Log out
// @Description Revokes the current token and clears the auth cookie
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /auth/logout/ [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if jti, exp, ok := middleware.CurrentToken(c); ok && s.blacklist != nil {
		if err := s.blacklist.RevokeToken(c.UserContext(), jti, exp); err != nil {
			return respondError(c, err)
		}
	}
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AuthCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// safeNext keeps next only when it is a path on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return ""
	}
	return next
}
