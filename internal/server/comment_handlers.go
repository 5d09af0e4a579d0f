package server

import (
	"blogicum/internal/models"
	"blogicum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// commentRequest is the body of the comment create and edit endpoints.
type commentRequest struct {
	Text string `json:"text" form:"text"`
}

func parseCommentText(c *fiber.Ctx) (string, error) {
	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return "", models.NewValidationError("Invalid request body")
	}
	return req.Text, nil
}

// commentAction resolves the post and comment ids of a comment route.
func commentAction(c *fiber.Ctx) (service.CommentActionInput, bool) {
	postID, err := parseID(c, "id")
	if err != nil {
		return service.CommentActionInput{}, false
	}
	commentID, err := parseID(c, "cid")
	if err != nil {
		return service.CommentActionInput{}, false
	}
	return service.CommentActionInput{PostID: postID, CommentID: commentID, Actor: actor(c)}, true
}

// CreateComment handles POST /posts/:id/comment/
// @Summary Comment on a post
// @Tags comments
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param id path int true "Post ID"
// @Param request body commentRequest true "Comment text"
// @Success 302 {object} models.RedirectResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/comment/ [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	text, err := parseCommentText(c)
	if err != nil {
		return respondError(c, err)
	}
	res, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		PostID: id,
		Actor:  actor(c),
		Text:   text,
		Now:    s.requestTime(),
	})
	return respond(c, res, err, fiber.StatusCreated)
}

// EditCommentForm handles GET /posts/:id/edit_comment/:cid/ and the
// confirmation page of GET /posts/:id/delete_comment/:cid/.
// @Summary Comment edit form
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Param cid path int true "Comment ID"
// @Success 200 {object} models.Comment
// @Success 302 {object} models.RedirectResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/edit_comment/{cid}/ [get]
func (s *Server) EditCommentForm(c *fiber.Ctx) error {
	in, ok := commentAction(c)
	if !ok {
		return nil
	}
	res, err := s.commentService.EditCommentForm(c.UserContext(), in)
	return respond(c, res, err, fiber.StatusOK)
}

// UpdateComment handles POST /posts/:id/edit_comment/:cid/
// @Summary Update a comment
// @Tags comments
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param id path int true "Post ID"
// @Param cid path int true "Comment ID"
// @Param request body commentRequest true "Comment text"
// @Success 302 {object} models.RedirectResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/edit_comment/{cid}/ [post]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	in, ok := commentAction(c)
	if !ok {
		return nil
	}
	text, err := parseCommentText(c)
	if err != nil {
		return respondError(c, err)
	}
	res, err := s.commentService.UpdateComment(c.UserContext(), service.UpdateCommentInput{
		CommentActionInput: in,
		Text:               text,
	})
	return respond(c, res, err, fiber.StatusOK)
}

// DeleteComment handles POST /posts/:id/delete_comment/:cid/
// @Summary Delete a comment
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Param cid path int true "Comment ID"
// @Success 302 {object} models.RedirectResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/delete_comment/{cid}/ [post]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	in, ok := commentAction(c)
	if !ok {
		return nil
	}
	res, err := s.commentService.DeleteComment(c.UserContext(), in)
	return respond(c, res, err, fiber.StatusOK)
}
