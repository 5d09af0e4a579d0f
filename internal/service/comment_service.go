package service

import (
	"context"
	"strings"
	"time"

	"blogicum/internal/models"
	"blogicum/internal/observability"
	"blogicum/internal/policy"
	"blogicum/internal/repository"
)

const maxCommentLen = 10000

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
}

type CreateCommentInput struct {
	PostID uint
	Actor  policy.Actor
	Text   string
	Now    time.Time
}

// CommentActionInput addresses a comment through the post it belongs to.
type CommentActionInput struct {
	PostID    uint
	CommentID uint
	Actor     policy.Actor
}

type UpdateCommentInput struct {
	CommentActionInput
	Text string
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
	}
}

// CreateComment attaches a comment to a publicly visible post.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (Result[*models.Comment], error) {
	if !in.Actor.Authenticated() {
		return RedirectTo[*models.Comment](LoginPath), nil
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return NotFound[*models.Comment](), nil
		}
		return Result[*models.Comment]{}, err
	}
	if !policy.CanComment(post, in.Actor, in.Now) {
		observability.RecordDenial("create_comment", observability.DenyNotPublic)
		return NotFound[*models.Comment](), nil
	}

	text, err := validateCommentText(in.Text)
	if err != nil {
		return Result[*models.Comment]{}, err
	}

	comment := &models.Comment{
		Text:     text,
		AuthorID: in.Actor.ID,
		PostID:   post.ID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return Result[*models.Comment]{}, err
	}
	observability.CommentsCreated.Inc()

	return Result[*models.Comment]{
		Outcome: OutcomeRedirect,
		Payload: comment,
		Target:  PostPath(post.ID),
	}, nil
}

// EditCommentForm returns the actor's own comment for editing.
func (s *CommentService) EditCommentForm(ctx context.Context, in CommentActionInput) (Result[*models.Comment], error) {
	comment, res, err := s.authorize(ctx, in, "edit_comment")
	if comment == nil {
		return res, err
	}
	return Ok(comment), nil
}

// UpdateComment replaces the text of the actor's own comment.
func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (Result[*models.Comment], error) {
	comment, res, err := s.authorize(ctx, in.CommentActionInput, "update_comment")
	if comment == nil {
		return res, err
	}

	text, err := validateCommentText(in.Text)
	if err != nil {
		return Result[*models.Comment]{}, err
	}
	comment.Text = text
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return Result[*models.Comment]{}, err
	}

	return Result[*models.Comment]{
		Outcome: OutcomeRedirect,
		Payload: comment,
		Target:  PostPath(in.PostID),
	}, nil
}

// DeleteComment removes the actor's own comment.
func (s *CommentService) DeleteComment(ctx context.Context, in CommentActionInput) (Result[*models.Comment], error) {
	comment, res, err := s.authorize(ctx, in, "delete_comment")
	if comment == nil {
		return res, err
	}
	if err := s.commentRepo.Delete(ctx, comment.ID); err != nil {
		return Result[*models.Comment]{}, err
	}
	return RedirectTo[*models.Comment](PostPath(in.PostID)), nil
}

// authorize loads the comment addressed by in. It returns a nil comment with
// the result to hand back when the comment is missing, belongs to another
// post, or is not the actor's.
func (s *CommentService) authorize(ctx context.Context, in CommentActionInput, action string) (*models.Comment, Result[*models.Comment], error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, NotFound[*models.Comment](), nil
		}
		return nil, Result[*models.Comment]{}, err
	}
	if comment.PostID != in.PostID {
		observability.RecordDenial(action, observability.DenyNotFound)
		return nil, NotFound[*models.Comment](), nil
	}
	if !policy.CanModify(comment, in.Actor) {
		observability.RecordDenial(action, observability.DenyNotOwner)
		return nil, RedirectTo[*models.Comment](PostPath(in.PostID)), nil
	}
	return comment, Result[*models.Comment]{}, nil
}

func validateCommentText(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	switch {
	case text == "":
		return "", models.NewFieldValidationError(map[string]string{"text": "Text is required"})
	case len(text) > maxCommentLen:
		return "", models.NewFieldValidationError(map[string]string{"text": "Comment too long (max 10000 characters)"})
	}
	return text, nil
}
