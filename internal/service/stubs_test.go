package service

import (
	"context"
	"errors"
	"testing"

	"blogicum/internal/models"
	"blogicum/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn  func(context.Context, *models.Post) error
	getByIDFn func(context.Context, uint) (*models.Post, error)
	listFn    func(context.Context, repository.PostQuery, int, int) ([]*models.Post, error)
	countFn   func(context.Context, repository.PostQuery) (int64, error)
	updateFn  func(context.Context, *models.Post) error
	deleteFn  func(context.Context, uint) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, q repository.PostQuery, limit, offset int) ([]*models.Post, error) {
	return s.listFn(ctx, q, limit, offset)
}
func (s *postRepoStub) Count(ctx context.Context, q repository.PostQuery) (int64, error) {
	return s.countFn(ctx, q)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error { p.ID = 1; return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", id)
		},
		listFn:   func(_ context.Context, _ repository.PostQuery, _, _ int) ([]*models.Post, error) { return nil, nil },
		countFn:  func(_ context.Context, _ repository.PostQuery) (int64, error) { return 0, nil },
		updateFn: func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn: func(_ context.Context, _ uint) error { return nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	getByIDFn    func(context.Context, uint) (*models.Comment, error)
	listByPostFn func(context.Context, uint) ([]*models.Comment, error)
	updateFn     func(context.Context, *models.Comment) error
	deleteFn     func(context.Context, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *commentRepoStub) Update(ctx context.Context, c *models.Comment) error {
	return s.updateFn(ctx, c)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, c *models.Comment) error { c.ID = 1; return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) {
			return nil, models.NewNotFoundError("Comment", id)
		},
		listByPostFn: func(_ context.Context, _ uint) ([]*models.Comment, error) { return nil, nil },
		updateFn:     func(_ context.Context, _ *models.Comment) error { return nil },
		deleteFn:     func(_ context.Context, _ uint) error { return nil },
	}
}

// categoryRepoStub is a stub for repository.CategoryRepository backed by a slice.
type categoryRepoStub struct {
	categories []*models.Category
}

func (s *categoryRepoStub) Create(_ context.Context, c *models.Category) error {
	s.categories = append(s.categories, c)
	return nil
}
func (s *categoryRepoStub) GetByID(_ context.Context, id uint) (*models.Category, error) {
	for _, c := range s.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, models.NewNotFoundError("Category", id)
}
func (s *categoryRepoStub) GetBySlug(_ context.Context, slug string) (*models.Category, error) {
	for _, c := range s.categories {
		if c.Slug == slug {
			return c, nil
		}
	}
	return nil, models.NewNotFoundError("Category", slug)
}
func (s *categoryRepoStub) List(_ context.Context) ([]*models.Category, error) {
	return s.categories, nil
}
func (s *categoryRepoStub) Update(_ context.Context, _ *models.Category) error { return nil }
func (s *categoryRepoStub) Delete(_ context.Context, _ uint) error             { return nil }

// locationRepoStub is a stub for repository.LocationRepository backed by a slice.
type locationRepoStub struct {
	locations []*models.Location
}

func (s *locationRepoStub) Create(_ context.Context, l *models.Location) error {
	s.locations = append(s.locations, l)
	return nil
}
func (s *locationRepoStub) GetByID(_ context.Context, id uint) (*models.Location, error) {
	for _, l := range s.locations {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, models.NewNotFoundError("Location", id)
}
func (s *locationRepoStub) List(_ context.Context) ([]*models.Location, error) {
	return s.locations, nil
}
func (s *locationRepoStub) Update(_ context.Context, _ *models.Location) error { return nil }
func (s *locationRepoStub) Delete(_ context.Context, _ uint) error             { return nil }

// userRepoStub is a stub for repository.UserRepository backed by a slice.
type userRepoStub struct {
	users    []*models.User
	createFn func(context.Context, *models.User) error
	updateFn func(context.Context, *models.User) error
}

func (s *userRepoStub) GetByID(_ context.Context, id uint) (*models.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, models.NewNotFoundError("User", id)
}
func (s *userRepoStub) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}
func (s *userRepoStub) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}
func (s *userRepoStub) Create(ctx context.Context, u *models.User) error {
	if s.createFn != nil {
		return s.createFn(ctx, u)
	}
	u.ID = uint(len(s.users) + 1)
	s.users = append(s.users, u)
	return nil
}
func (s *userRepoStub) Update(ctx context.Context, u *models.User) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, u)
	}
	return nil
}
func (s *userRepoStub) Delete(_ context.Context, _ uint) error { return nil }

// imageSaverStub records saved and removed image paths.
type imageSaverStub struct {
	saveFn  func(ImageUpload) (string, error)
	removed []string
}

func (s *imageSaverStub) Save(in ImageUpload) (string, error) {
	return s.saveFn(in)
}
func (s *imageSaverStub) Remove(rel string) {
	s.removed = append(s.removed, rel)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

// assertFieldError asserts a validation error naming field.
func assertFieldError(t *testing.T, err error, field string) {
	t.Helper()
	assertValidationError(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, field)
}

// assertUnauthorizedError asserts that err is an AppError with code UNAUTHORIZED.
func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}
