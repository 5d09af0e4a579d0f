package service

import (
	"context"
	"testing"
	"time"

	"blogicum/internal/models"
	"blogicum/internal/policy"
	"blogicum/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func uintPtr(v uint) *uint { return &v }
func boolPtr(v bool) *bool { return &v }

type postFixture struct {
	posts      *postRepoStub
	comments   *commentRepoStub
	categories *categoryRepoStub
	locations  *locationRepoStub
	users      *userRepoStub
	images     *imageSaverStub
}

func newPostFixture() *postFixture {
	return &postFixture{
		posts:    noopPostRepo(),
		comments: noopCommentRepo(),
		categories: &categoryRepoStub{categories: []*models.Category{
			{ID: 1, Slug: "travel", IsPublished: true},
			{ID: 2, Slug: "drafts", IsPublished: false},
		}},
		locations: &locationRepoStub{locations: []*models.Location{{ID: 5, Name: "Москва", IsPublished: true}}},
		users: &userRepoStub{users: []*models.User{
			{ID: 10, Username: "alice", Email: "alice@example.com"},
			{ID: 11, Username: "bob", Email: "bob@example.com"},
		}},
		images: &imageSaverStub{saveFn: func(ImageUpload) (string, error) { return "posts/ab/new.webp", nil }},
	}
}

func (f *postFixture) service() *PostService {
	return NewPostService(f.posts, f.comments, f.categories, f.locations, f.users, f.images)
}

func (f *postFixture) withPost(p *models.Post) {
	f.posts.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		if id != p.ID {
			return nil, models.NewNotFoundError("Post", id)
		}
		cp := *p
		return &cp, nil
	}
}

func TestPostService_ListPosts_Scopes(t *testing.T) {
	t.Run("AllPublic filters publicly", func(t *testing.T) {
		f := newPostFixture()
		var seen repository.PostQuery
		f.posts.countFn = func(_ context.Context, q repository.PostQuery) (int64, error) { seen = q; return 0, nil }

		res, err := f.service().ListPosts(context.Background(), ListPostsInput{Scope: AllPublic(), Now: now})
		require.NoError(t, err)
		assert.Equal(t, OutcomeOK, res.Outcome)
		assert.True(t, seen.PublicOnly)
		assert.Equal(t, now, seen.Now)
		assert.Zero(t, seen.CategoryID)
		assert.NotNil(t, res.Payload.Items)
	})

	t.Run("ByCategory published", func(t *testing.T) {
		f := newPostFixture()
		var seen repository.PostQuery
		f.posts.countFn = func(_ context.Context, q repository.PostQuery) (int64, error) { seen = q; return 1, nil }

		res, err := f.service().ListPosts(context.Background(), ListPostsInput{Scope: ByCategory("travel"), Now: now})
		require.NoError(t, err)
		assert.Equal(t, OutcomeOK, res.Outcome)
		assert.Equal(t, uint(1), seen.CategoryID)
		assert.True(t, seen.PublicOnly)
	})

	t.Run("ByCategory unpublished is not found", func(t *testing.T) {
		res, err := newPostFixture().service().ListPosts(context.Background(), ListPostsInput{Scope: ByCategory("drafts"), Now: now})
		require.NoError(t, err)
		assert.Equal(t, OutcomeNotFound, res.Outcome)
	})

	t.Run("ByCategory missing is not found", func(t *testing.T) {
		res, err := newPostFixture().service().ListPosts(context.Background(), ListPostsInput{Scope: ByCategory("nope"), Now: now})
		require.NoError(t, err)
		assert.Equal(t, OutcomeNotFound, res.Outcome)
	})

	t.Run("ByAuthor owner sees everything", func(t *testing.T) {
		f := newPostFixture()
		var seen repository.PostQuery
		f.posts.countFn = func(_ context.Context, q repository.PostQuery) (int64, error) { seen = q; return 0, nil }

		_, err := f.service().ListPosts(context.Background(), ListPostsInput{
			Scope: ByAuthor("alice"), Viewer: policy.Actor{ID: 10}, Now: now,
		})
		require.NoError(t, err)
		assert.Equal(t, uint(10), seen.AuthorID)
		assert.False(t, seen.PublicOnly)
	})

	t.Run("ByAuthor other viewer sees public subset", func(t *testing.T) {
		f := newPostFixture()
		var seen repository.PostQuery
		f.posts.countFn = func(_ context.Context, q repository.PostQuery) (int64, error) { seen = q; return 0, nil }

		_, err := f.service().ListPosts(context.Background(), ListPostsInput{
			Scope: ByAuthor("alice"), Viewer: policy.Actor{ID: 11}, Now: now,
		})
		require.NoError(t, err)
		assert.True(t, seen.PublicOnly)
	})

	t.Run("ByAuthor unknown user", func(t *testing.T) {
		res, err := newPostFixture().service().ListPosts(context.Background(), ListPostsInput{Scope: ByAuthor("ghost"), Now: now})
		require.NoError(t, err)
		assert.Equal(t, OutcomeNotFound, res.Outcome)
	})
}

func TestPostService_ListPosts_Pagination(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		page       string
		outcome    Outcome
		wantOffset int
	}{
		{"first page by default", 15, "", OutcomeOK, 0},
		{"second page", 15, "2", OutcomeOK, 10},
		{"past the end", 15, "3", OutcomeNotFound, -1},
		{"not a number", 15, "abc", OutcomeNotFound, -1},
		{"zero", 15, "0", OutcomeNotFound, -1},
		{"empty listing first page", 0, "1", OutcomeOK, 0},
		{"empty listing second page", 0, "2", OutcomeNotFound, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPostFixture()
			offset := -1
			f.posts.countFn = func(_ context.Context, _ repository.PostQuery) (int64, error) { return tt.total, nil }
			f.posts.listFn = func(_ context.Context, _ repository.PostQuery, limit, off int) ([]*models.Post, error) {
				assert.Equal(t, PageSize, limit)
				offset = off
				return nil, nil
			}

			res, err := f.service().ListPosts(context.Background(), ListPostsInput{Scope: AllPublic(), Now: now, Page: tt.page})
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestPostService_GetPost(t *testing.T) {
	future := &models.Post{ID: 3, AuthorID: 10, Title: "Soon", PubDate: now.Add(time.Hour), IsPublished: true}

	t.Run("hidden from others", func(t *testing.T) {
		f := newPostFixture()
		f.withPost(future)
		for _, viewer := range []policy.Actor{policy.Anonymous, {ID: 11}} {
			res, err := f.service().GetPost(context.Background(), GetPostInput{PostID: 3, Viewer: viewer, Now: now})
			require.NoError(t, err)
			assert.Equal(t, OutcomeNotFound, res.Outcome)
		}
	})

	t.Run("author sees own scheduled post", func(t *testing.T) {
		f := newPostFixture()
		f.withPost(future)
		f.comments.listByPostFn = func(_ context.Context, postID uint) ([]*models.Comment, error) {
			return []*models.Comment{{ID: 1, PostID: postID}}, nil
		}

		res, err := f.service().GetPost(context.Background(), GetPostInput{PostID: 3, Viewer: policy.Actor{ID: 10}, Now: now})
		require.NoError(t, err)
		require.Equal(t, OutcomeOK, res.Outcome)
		assert.True(t, res.Payload.CanModify)
		assert.False(t, res.Payload.CanComment)
		assert.Len(t, res.Payload.Comments, 1)
	})

	t.Run("missing post", func(t *testing.T) {
		res, err := newPostFixture().service().GetPost(context.Background(), GetPostInput{PostID: 99, Now: now})
		require.NoError(t, err)
		assert.Equal(t, OutcomeNotFound, res.Outcome)
	})

	t.Run("public post for a reader", func(t *testing.T) {
		f := newPostFixture()
		f.withPost(&models.Post{ID: 4, AuthorID: 10, PubDate: now, IsPublished: true})

		res, err := f.service().GetPost(context.Background(), GetPostInput{PostID: 4, Viewer: policy.Actor{ID: 11}, Now: now})
		require.NoError(t, err)
		require.Equal(t, OutcomeOK, res.Outcome)
		assert.False(t, res.Payload.CanModify)
		assert.True(t, res.Payload.CanComment)
		assert.NotNil(t, res.Payload.Comments)
	})
}

func TestPostService_CreatePost(t *testing.T) {
	t.Run("redirects to the author's profile", func(t *testing.T) {
		f := newPostFixture()
		var created *models.Post
		f.posts.createFn = func(_ context.Context, p *models.Post) error { p.ID = 7; created = p; return nil }

		res, err := f.service().CreatePost(context.Background(), CreatePostInput{
			Actor: policy.Actor{ID: 10},
			Now:   now,
			PostForm: PostForm{
				Title:      "  Hello  ",
				Text:       "World",
				CategoryID: uintPtr(1),
				LocationID: uintPtr(5),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeRedirect, res.Outcome)
		assert.Equal(t, "/profile/alice/", res.Target)
		require.NotNil(t, created)
		assert.Equal(t, "Hello", created.Title)
		assert.Equal(t, uint(10), created.AuthorID)
		assert.Equal(t, now, created.PubDate)
		assert.True(t, created.IsPublished)
	})

	t.Run("explicit schedule and draft", func(t *testing.T) {
		f := newPostFixture()
		var created *models.Post
		f.posts.createFn = func(_ context.Context, p *models.Post) error { created = p; return nil }
		later := now.Add(48 * time.Hour)

		_, err := f.service().CreatePost(context.Background(), CreatePostInput{
			Actor:    policy.Actor{ID: 10},
			Now:      now,
			PostForm: PostForm{Title: "T", Text: "x", PubDate: &later, IsPublished: boolPtr(false)},
		})
		require.NoError(t, err)
		assert.Equal(t, later, created.PubDate)
		assert.False(t, created.IsPublished)
	})

	t.Run("validation errors persist nothing", func(t *testing.T) {
		f := newPostFixture()
		f.posts.createFn = func(_ context.Context, _ *models.Post) error {
			t.Fatal("Create must not be called")
			return nil
		}

		_, err := f.service().CreatePost(context.Background(), CreatePostInput{
			Actor:    policy.Actor{ID: 10},
			Now:      now,
			PostForm: PostForm{Title: "", Text: "", CategoryID: uintPtr(42)},
		})
		assertFieldError(t, err, "title")
		assertFieldError(t, err, "text")
		assertFieldError(t, err, "category")
	})

	t.Run("anonymous is sent to login", func(t *testing.T) {
		res, err := newPostFixture().service().CreatePost(context.Background(), CreatePostInput{Now: now})
		require.NoError(t, err)
		assert.Equal(t, OutcomeRedirect, res.Outcome)
		assert.Equal(t, LoginPath, res.Target)
	})

	t.Run("stores the uploaded image", func(t *testing.T) {
		f := newPostFixture()
		var created *models.Post
		f.posts.createFn = func(_ context.Context, p *models.Post) error { created = p; return nil }

		_, err := f.service().CreatePost(context.Background(), CreatePostInput{
			Actor:    policy.Actor{ID: 10},
			Now:      now,
			PostForm: PostForm{Title: "T", Text: "x", Image: &ImageUpload{Content: []byte{1}}},
		})
		require.NoError(t, err)
		assert.Equal(t, "posts/ab/new.webp", created.Image)
	})
}

func TestPostService_UpdatePost(t *testing.T) {
	existing := &models.Post{ID: 3, AuthorID: 10, Title: "Old", Text: "old", PubDate: now, IsPublished: true, Image: "posts/aa/old.webp"}

	t.Run("non-owner is redirected and nothing changes", func(t *testing.T) {
		f := newPostFixture()
		f.withPost(existing)
		f.posts.updateFn = func(_ context.Context, _ *models.Post) error {
			t.Fatal("Update must not be called")
			return nil
		}

		res, err := f.service().UpdatePost(context.Background(), UpdatePostInput{
			PostID: 3, Actor: policy.Actor{ID: 11}, PostForm: PostForm{Title: "New", Text: "new"},
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeRedirect, res.Outcome)
		assert.Equal(t, "/posts/3/", res.Target)
	})

	t.Run("owner update keeps unspecified fields", func(t *testing.T) {
		f := newPostFixture()
		f.withPost(existing)
		var saved *models.Post
		f.posts.updateFn = func(_ context.Context, p *models.Post) error { saved = p; return nil }

		res, err := f.service().UpdatePost(context.Background(), UpdatePostInput{
			PostID: 3, Actor: policy.Actor{ID: 10}, PostForm: PostForm{Title: "New", Text: "new"},
		})
		require.NoError(t, err)
		assert.Equal(t, "/posts/3/", res.Target)
		assert.Equal(t, "New", saved.Title)
		assert.Equal(t, now, saved.PubDate)
		assert.True(t, saved.IsPublished)
		assert.Equal(t, "posts/aa/old.webp", saved.Image)
		assert.Empty(t, f.images.removed)
	})

	t.Run("replacing the image removes the old file", func(t *testing.T) {
		f := newPostFixture()
		f.withPost(existing)

		_, err := f.service().UpdatePost(context.Background(), UpdatePostInput{
			PostID: 3, Actor: policy.Actor{ID: 10},
			PostForm: PostForm{Title: "T", Text: "x", Image: &ImageUpload{Content: []byte{1}}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"posts/aa/old.webp"}, f.images.removed)
	})

	t.Run("missing post", func(t *testing.T) {
		res, err := newPostFixture().service().UpdatePost(context.Background(), UpdatePostInput{PostID: 9, Actor: policy.Actor{ID: 10}})
		require.NoError(t, err)
		assert.Equal(t, OutcomeNotFound, res.Outcome)
	})
}

func TestPostService_DeletePost(t *testing.T) {
	existing := &models.Post{ID: 3, AuthorID: 10, PubDate: now, IsPublished: true, Image: "posts/aa/old.webp"}

	t.Run("non-owner keeps the post", func(t *testing.T) {
		f := newPostFixture()
		f.withPost(existing)
		f.posts.deleteFn = func(_ context.Context, _ uint) error {
			t.Fatal("Delete must not be called")
			return nil
		}

		res, err := f.service().DeletePost(context.Background(), PostActionInput{PostID: 3, Actor: policy.Actor{ID: 11}})
		require.NoError(t, err)
		assert.Equal(t, OutcomeRedirect, res.Outcome)
		assert.Equal(t, "/posts/3/", res.Target)
	})

	t.Run("anonymous keeps the post", func(t *testing.T) {
		f := newPostFixture()
		f.withPost(existing)
		res, err := f.service().DeletePost(context.Background(), PostActionInput{PostID: 3})
		require.NoError(t, err)
		assert.Equal(t, "/posts/3/", res.Target)
	})

	t.Run("owner deletes and returns to the index", func(t *testing.T) {
		f := newPostFixture()
		f.withPost(existing)
		var deleted uint
		f.posts.deleteFn = func(_ context.Context, id uint) error { deleted = id; return nil }

		res, err := f.service().DeletePost(context.Background(), PostActionInput{PostID: 3, Actor: policy.Actor{ID: 10}})
		require.NoError(t, err)
		assert.Equal(t, IndexPath, res.Target)
		assert.Equal(t, uint(3), deleted)
		assert.Equal(t, []string{"posts/aa/old.webp"}, f.images.removed)
	})
}

func TestPostService_EditPostForm(t *testing.T) {
	f := newPostFixture()
	f.withPost(&models.Post{ID: 3, AuthorID: 10, Title: "Mine"})

	res, err := f.service().EditPostForm(context.Background(), PostActionInput{PostID: 3, Actor: policy.Actor{ID: 10}})
	require.NoError(t, err)
	require.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, "Mine", res.Payload.Title)

	res, err = f.service().EditPostForm(context.Background(), PostActionInput{PostID: 3, Actor: policy.Actor{ID: 11}})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRedirect, res.Outcome)
	assert.Equal(t, "/posts/3/", res.Target)
}
