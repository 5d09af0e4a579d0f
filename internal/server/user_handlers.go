package server

import (
	"blogicum/internal/models"
	"blogicum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Profile handles GET /profile/:username/
// @Summary User profile
// @Description The owner sees all of their posts; everyone else sees only public ones
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Param page query int false "Page number (1-based)"
// @Success 200 {object} service.Profile
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/{username}/ [get]
func (s *Server) Profile(c *fiber.Ctx) error {
	res, err := s.userService.GetProfile(c.UserContext(), service.GetProfileInput{
		Username: c.Params("username"),
		Viewer:   actor(c),
		Now:      s.requestTime(),
		Page:     c.Query("page"),
	})
	return respond(c, res, err, fiber.StatusOK)
}

// EditProfileForm handles GET /edit_profile/
// @Summary Profile edit form
// @Tags users
// @Produce json
// @Success 200 {object} service.ProfileForm
// @Success 302 {object} models.RedirectResponse
// @Security BearerAuth
// @Router /edit_profile/ [get]
func (s *Server) EditProfileForm(c *fiber.Ctx) error {
	res, err := s.userService.EditProfileForm(c.UserContext(), actor(c))
	return respond(c, res, err, fiber.StatusOK)
}

// UpdateProfile handles POST /edit_profile/
// @Summary Update own profile
// @Tags users
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body service.ProfileForm true "Account fields"
// @Success 302 {object} models.RedirectResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /edit_profile/ [post]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var form service.ProfileForm
	if c.Is("json") {
		if err := c.BodyParser(&form); err != nil {
			return respondError(c, models.NewValidationError("Invalid request body"))
		}
	} else {
		form = service.ProfileForm{
			Username:  c.FormValue("username"),
			Email:     c.FormValue("email"),
			FirstName: c.FormValue("first_name"),
			LastName:  c.FormValue("last_name"),
		}
	}
	res, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		Actor:       actor(c),
		ProfileForm: form,
	})
	return respond(c, res, err, fiber.StatusOK)
}
