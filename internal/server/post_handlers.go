package server

import (
	"io"
	"strconv"
	"strings"
	"time"

	"blogicum/internal/featureflags"
	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// pubDateLayouts are accepted for the pub_date form field, tried in order.
// Values without a zone are read as UTC.
var pubDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

// postRequest is the JSON body of the post create and edit endpoints.
type postRequest struct {
	Title       string  `json:"title"`
	Text        string  `json:"text"`
	PubDate     *string `json:"pub_date"`
	Category    *uint   `json:"category"`
	Location    *uint   `json:"location"`
	IsPublished *bool   `json:"is_published"`
}

// Index handles GET /
// @Summary Public feed
// @Description Published posts released by now in published or no category, newest first, 10 per page
// @Tags posts
// @Produce json
// @Param page query int false "Page number (1-based)"
// @Success 200 {object} service.PostPage
// @Failure 404 {object} models.ErrorResponse
// @Router / [get]
func (s *Server) Index(c *fiber.Ctx) error {
	res, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		Scope:  service.AllPublic(),
		Viewer: actor(c),
		Now:    s.requestTime(),
		Page:   c.Query("page"),
	})
	return respond(c, res, err, fiber.StatusOK)
}

// CategoryPosts handles GET /category/:slug/
// @Summary Category feed
// @Tags posts
// @Produce json
// @Param slug path string true "Category slug"
// @Param page query int false "Page number (1-based)"
// @Success 200 {object} service.PostPage
// @Failure 404 {object} models.ErrorResponse
// @Router /category/{slug}/ [get]
func (s *Server) CategoryPosts(c *fiber.Ctx) error {
	res, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		Scope:  service.ByCategory(c.Params("slug")),
		Viewer: actor(c),
		Now:    s.requestTime(),
		Page:   c.Query("page"),
	})
	return respond(c, res, err, fiber.StatusOK)
}

// PostDetail handles GET /posts/:id/
// @Summary Post with comments
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} service.PostDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/ [get]
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.postService.GetPost(c.UserContext(), service.GetPostInput{
		PostID: id,
		Viewer: actor(c),
		Now:    s.requestTime(),
	})
	return respond(c, res, err, fiber.StatusOK)
}

// CreatePost handles POST /posts/create/
// @Summary Create a post
// @Description Accepts JSON or multipart/form-data; the multipart form may carry an image file
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Param request body postRequest true "Post fields"
// @Param image formData file false "Post image"
// @Success 302 {object} models.RedirectResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/create/ [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	form, err := s.parsePostForm(c)
	if err != nil {
		return respondError(c, err)
	}
	res, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		Actor:    actor(c),
		Now:      s.requestTime(),
		PostForm: form,
	})
	return respond(c, res, err, fiber.StatusCreated)
}

// EditPostForm handles GET /posts/:id/edit/
// @Summary Post edit form
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Success 302 {object} models.RedirectResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/edit/ [get]
func (s *Server) EditPostForm(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.postService.EditPostForm(c.UserContext(), service.PostActionInput{PostID: id, Actor: actor(c)})
	return respond(c, res, err, fiber.StatusOK)
}

// UpdatePost handles POST /posts/:id/edit/
// @Summary Update a post
// @Description Only the author may edit; anyone else is sent back to the post
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Param id path int true "Post ID"
// @Param request body postRequest true "Post fields"
// @Success 302 {object} models.RedirectResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/edit/ [post]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	form, err := s.parsePostForm(c)
	if err != nil {
		return respondError(c, err)
	}
	res, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		PostID:   id,
		Actor:    actor(c),
		PostForm: form,
	})
	return respond(c, res, err, fiber.StatusOK)
}

// DeletePostForm handles GET /posts/:id/delete/ and shows the post to confirm.
func (s *Server) DeletePostForm(c *fiber.Ctx) error {
	return s.EditPostForm(c)
}

// DeletePost handles POST /posts/:id/delete/
// @Summary Delete a post
// @Description Removes the post with its comments and redirects to the feed
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 302 {object} models.RedirectResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/delete/ [post]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.postService.DeletePost(c.UserContext(), service.PostActionInput{PostID: id, Actor: actor(c)})
	return respond(c, res, err, fiber.StatusOK)
}

// parsePostForm reads the post fields from a JSON or form body. An image is
// only taken from multipart bodies.
func (s *Server) parsePostForm(c *fiber.Ctx) (service.PostForm, error) {
	fields := map[string]string{}

	var req postRequest
	if c.Is("json") {
		if err := c.BodyParser(&req); err != nil {
			return service.PostForm{}, models.NewValidationError("Invalid request body")
		}
	} else {
		req.Title = c.FormValue("title")
		req.Text = c.FormValue("text")
		if v := strings.TrimSpace(c.FormValue("pub_date")); v != "" {
			req.PubDate = &v
		}
		req.Category = formID(c.FormValue("category"), "category", fields)
		req.Location = formID(c.FormValue("location"), "location", fields)
		if v := strings.TrimSpace(c.FormValue("is_published")); v != "" {
			published := v == "on" || v == "true" || v == "1"
			req.IsPublished = &published
		}
	}

	form := service.PostForm{
		Title:       req.Title,
		Text:        req.Text,
		CategoryID:  nonZero(req.Category),
		LocationID:  nonZero(req.Location),
		IsPublished: req.IsPublished,
	}
	if req.PubDate != nil && strings.TrimSpace(*req.PubDate) != "" {
		t, ok := parsePubDate(*req.PubDate)
		if !ok {
			fields["pub_date"] = "Enter a valid date and time"
		}
		form.PubDate = &t
	}

	image, err := s.formImage(c)
	if err != nil {
		return service.PostForm{}, err
	}
	form.Image = image

	if err := models.NewFieldValidationError(fields); err != nil {
		return service.PostForm{}, err
	}
	return form, nil
}

// formImage returns the uploaded image file, or nil when none was sent.
func (s *Server) formImage(c *fiber.Ctx) (*service.ImageUpload, error) {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	file, err := c.FormFile("image")
	if err != nil || file == nil || file.Size == 0 {
		return nil, nil
	}
	if !s.featureFlags.EnabledOr(featureflags.ImageUploads, middleware.CurrentUserID(c), true) {
		return nil, models.NewFieldValidationError(map[string]string{"image": "Image uploads are disabled"})
	}

	src, err := file.Open()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &service.ImageUpload{
		Filename:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}, nil
}

func formID(raw, field string, fields map[string]string) *uint {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		fields[field] = "Select a valid " + field
		return nil
	}
	v := uint(id)
	return &v
}

func nonZero(id *uint) *uint {
	if id == nil || *id == 0 {
		return nil
	}
	return id
}

func parsePubDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
