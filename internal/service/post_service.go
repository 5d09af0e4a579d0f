package service

import (
	"context"
	"strings"
	"time"

	"blogicum/internal/models"
	"blogicum/internal/observability"
	"blogicum/internal/policy"
	"blogicum/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxTitleLen = 256
	maxTextLen  = 50000
)

// ImageSaver persists post images. *ImageStore implements it.
type ImageSaver interface {
	Save(in ImageUpload) (string, error)
	Remove(rel string)
}

type PostService struct {
	postRepo     repository.PostRepository
	commentRepo  repository.CommentRepository
	categoryRepo repository.CategoryRepository
	locationRepo repository.LocationRepository
	userRepo     repository.UserRepository
	images       ImageSaver
}

type ListPostsInput struct {
	Scope  Scope
	Viewer policy.Actor
	Now    time.Time
	// Page is the raw page query parameter; empty means the first page.
	Page string
}

// PostForm carries the editable fields of a post.
type PostForm struct {
	Title string
	Text  string
	// PubDate defaults to now on create and to the stored value on update.
	PubDate *time.Time
	// CategoryID and LocationID clear the reference when nil.
	CategoryID *uint
	LocationID *uint
	// IsPublished defaults to true on create and to the stored value on update.
	IsPublished *bool
	Image       *ImageUpload
}

type CreatePostInput struct {
	Actor policy.Actor
	Now   time.Time
	PostForm
}

type UpdatePostInput struct {
	PostID uint
	Actor  policy.Actor
	PostForm
}

// PostActionInput identifies a post acted upon by a user.
type PostActionInput struct {
	PostID uint
	Actor  policy.Actor
}

type GetPostInput struct {
	PostID uint
	Viewer policy.Actor
	Now    time.Time
}

// PostDetail is the payload of a post page.
type PostDetail struct {
	Post       *models.Post      `json:"post"`
	Comments   []*models.Comment `json:"comments"`
	CanModify  bool              `json:"can_modify"`
	CanComment bool              `json:"can_comment"`
}

// PostPage is one page of a post listing.
type PostPage = Page[*models.Post]

func NewPostService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	categoryRepo repository.CategoryRepository,
	locationRepo repository.LocationRepository,
	userRepo repository.UserRepository,
	images ImageSaver,
) *PostService {
	return &PostService{
		postRepo:     postRepo,
		commentRepo:  commentRepo,
		categoryRepo: categoryRepo,
		locationRepo: locationRepo,
		userRepo:     userRepo,
		images:       images,
	}
}

// ListPosts resolves the scope to a repository query and returns the requested page.
func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) (Result[PostPage], error) {
	ctx, span := observability.StartSpan(ctx, "PostService.ListPosts",
		attribute.Int("scope", int(in.Scope.Kind)))
	defer span.End()

	q := repository.PostQuery{PublicOnly: true, Now: in.Now}

	switch in.Scope.Kind {
	case ScopeByCategory:
		category, err := s.categoryRepo.GetBySlug(ctx, in.Scope.Slug)
		if err != nil {
			if models.HasCode(err, models.CodeNotFound) {
				return NotFound[PostPage](), nil
			}
			span.SetError(err)
			return Result[PostPage]{}, err
		}
		if !policy.CategoryBrowsable(category) {
			observability.RecordDenial("list_category", observability.DenyNotPublic)
			return NotFound[PostPage](), nil
		}
		q.CategoryID = category.ID
	case ScopeByAuthor:
		author, err := s.userRepo.GetByUsername(ctx, in.Scope.Username)
		if err != nil {
			span.SetError(err)
			return Result[PostPage]{}, err
		}
		if author == nil {
			return NotFound[PostPage](), nil
		}
		q.AuthorID = author.ID
		if in.Viewer.Is(author.ID) {
			q.PublicOnly = false
		}
	}

	total, err := s.postRepo.Count(ctx, q)
	if err != nil {
		span.SetError(err)
		return Result[PostPage]{}, err
	}
	number, numPages, ok := parsePage(in.Page, total)
	if !ok {
		return NotFound[PostPage](), nil
	}

	posts, err := s.postRepo.List(ctx, q, PageSize, (number-1)*PageSize)
	if err != nil {
		span.SetError(err)
		return Result[PostPage]{}, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}

	return Ok(PostPage{
		Items:       posts,
		Number:      number,
		NumPages:    numPages,
		Total:       total,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}), nil
}

// GetPost returns the post with its comments when the viewer may see it.
func (s *PostService) GetPost(ctx context.Context, in GetPostInput) (Result[PostDetail], error) {
	ctx, span := observability.StartSpan(ctx, "PostService.GetPost",
		attribute.Int64("post.id", int64(in.PostID)))
	defer span.End()

	post, err := s.lookup(ctx, in.PostID)
	if err != nil {
		span.SetError(err)
		return Result[PostDetail]{}, err
	}
	if post == nil {
		return NotFound[PostDetail](), nil
	}
	if !policy.PostVisible(post, in.Viewer, in.Now) {
		observability.RecordDenial("view_post", observability.DenyNotPublic)
		return NotFound[PostDetail](), nil
	}

	comments, err := s.commentRepo.ListByPost(ctx, post.ID)
	if err != nil {
		span.SetError(err)
		return Result[PostDetail]{}, err
	}
	if comments == nil {
		comments = []*models.Comment{}
	}

	return Ok(PostDetail{
		Post:       post,
		Comments:   comments,
		CanModify:  policy.CanModify(post, in.Viewer),
		CanComment: policy.CanComment(post, in.Viewer, in.Now),
	}), nil
}

// CreatePost stores a new post authored by the actor and sends them to their profile.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (Result[*models.Post], error) {
	if !in.Actor.Authenticated() {
		return RedirectTo[*models.Post](LoginPath), nil
	}
	author, err := s.userRepo.GetByID(ctx, in.Actor.ID)
	if err != nil {
		return Result[*models.Post]{}, err
	}

	post := &models.Post{
		AuthorID:    author.ID,
		PubDate:     in.Now.UTC(),
		IsPublished: true,
	}
	if err := s.applyForm(ctx, post, in.PostForm); err != nil {
		return Result[*models.Post]{}, err
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		s.discardImage(post.Image)
		return Result[*models.Post]{}, err
	}
	observability.PostsCreated.Inc()

	return Result[*models.Post]{
		Outcome: OutcomeRedirect,
		Payload: post,
		Target:  ProfilePath(author.Username),
	}, nil
}

// EditPostForm returns the post for editing, or sends a non-owner back to it.
func (s *PostService) EditPostForm(ctx context.Context, in PostActionInput) (Result[*models.Post], error) {
	post, err := s.lookup(ctx, in.PostID)
	if err != nil {
		return Result[*models.Post]{}, err
	}
	if post == nil {
		return NotFound[*models.Post](), nil
	}
	if !policy.CanModify(post, in.Actor) {
		observability.RecordDenial("edit_post", observability.DenyNotOwner)
		return RedirectTo[*models.Post](PostPath(post.ID)), nil
	}
	return Ok(post), nil
}

// UpdatePost applies the form to the actor's own post.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (Result[*models.Post], error) {
	post, err := s.lookup(ctx, in.PostID)
	if err != nil {
		return Result[*models.Post]{}, err
	}
	if post == nil {
		return NotFound[*models.Post](), nil
	}
	if !policy.CanModify(post, in.Actor) {
		observability.RecordDenial("update_post", observability.DenyNotOwner)
		return RedirectTo[*models.Post](PostPath(post.ID)), nil
	}

	previousImage := post.Image
	if err := s.applyForm(ctx, post, in.PostForm); err != nil {
		return Result[*models.Post]{}, err
	}
	if err := s.postRepo.Update(ctx, post); err != nil {
		if post.Image != previousImage {
			s.discardImage(post.Image)
		}
		return Result[*models.Post]{}, err
	}
	if post.Image != previousImage {
		s.discardImage(previousImage)
	}

	return Result[*models.Post]{
		Outcome: OutcomeRedirect,
		Payload: post,
		Target:  PostPath(post.ID),
	}, nil
}

// DeletePost removes the actor's own post and its comments.
func (s *PostService) DeletePost(ctx context.Context, in PostActionInput) (Result[struct{}], error) {
	post, err := s.lookup(ctx, in.PostID)
	if err != nil {
		return Result[struct{}]{}, err
	}
	if post == nil {
		return NotFound[struct{}](), nil
	}
	if !policy.CanModify(post, in.Actor) {
		observability.RecordDenial("delete_post", observability.DenyNotOwner)
		return RedirectTo[struct{}](PostPath(post.ID)), nil
	}
	if err := s.postRepo.Delete(ctx, post.ID); err != nil {
		return Result[struct{}]{}, err
	}
	s.discardImage(post.Image)
	return RedirectTo[struct{}](IndexPath), nil
}

// lookup returns nil, nil for a missing post.
func (s *PostService) lookup(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return post, nil
}

// applyForm validates the form and copies it onto post. Nothing is written
// to post when validation fails.
func (s *PostService) applyForm(ctx context.Context, post *models.Post, form PostForm) error {
	fields := map[string]string{}

	title := strings.TrimSpace(form.Title)
	switch {
	case title == "":
		fields["title"] = "Title is required"
	case len([]rune(title)) > maxTitleLen:
		fields["title"] = "Title too long (max 256 characters)"
	}
	text := strings.TrimSpace(form.Text)
	switch {
	case text == "":
		fields["text"] = "Text is required"
	case len(text) > maxTextLen:
		fields["text"] = "Text too long (max 50000 characters)"
	}

	if form.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *form.CategoryID); err != nil {
			if !models.HasCode(err, models.CodeNotFound) {
				return err
			}
			fields["category"] = "Select a valid category"
		}
	}
	if form.LocationID != nil {
		if _, err := s.locationRepo.GetByID(ctx, *form.LocationID); err != nil {
			if !models.HasCode(err, models.CodeNotFound) {
				return err
			}
			fields["location"] = "Select a valid location"
		}
	}

	if err := models.NewFieldValidationError(fields); err != nil {
		return err
	}

	image := post.Image
	if form.Image != nil {
		if s.images == nil {
			return models.NewFieldValidationError(map[string]string{"image": "Image uploads are disabled"})
		}
		saved, err := s.images.Save(*form.Image)
		if err != nil {
			return err
		}
		image = saved
	}

	post.Title = title
	post.Text = text
	post.Image = image
	if form.PubDate != nil {
		post.PubDate = form.PubDate.UTC()
	}
	if form.IsPublished != nil {
		post.IsPublished = *form.IsPublished
	}
	post.CategoryID = form.CategoryID
	post.Category = nil
	post.LocationID = form.LocationID
	post.Location = nil
	return nil
}

func (s *PostService) discardImage(rel string) {
	if s.images != nil && rel != "" {
		s.images.Remove(rel)
	}
}
