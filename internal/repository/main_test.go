package repository

import (
	"log"
	"os"
	"testing"
	"time"

	"blogicum/internal/config"
	"blogicum/internal/database"
	"blogicum/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")

	var err error
	testDB, err = database.Connect(&config.Config{
		Env:        "test",
		DBDriver:   "sqlite",
		SQLitePath: "file:repository_test?mode=memory&cache=shared",
	})
	if err != nil {
		log.Fatalf("repository tests: open sqlite: %v", err)
	}

	code := m.Run()
	_ = database.Close()
	os.Exit(code)
}

// resetDB empties every table, children first.
func resetDB(t *testing.T) {
	t.Helper()
	for _, table := range []string{"comments", "posts", "categories", "locations", "users"} {
		require.NoError(t, testDB.Exec("DELETE FROM "+table).Error)
	}
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// base is a fixed instant all fixtures are laid out around.
var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func mustUser(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "x"}
	require.NoError(t, NewUserRepository(testDB).Create(t.Context(), u))
	return u
}

func mustCategory(t *testing.T, slug string, published bool) *models.Category {
	t.Helper()
	c := &models.Category{Title: slug, Description: slug, Slug: slug, IsPublished: published}
	require.NoError(t, NewCategoryRepository(testDB).Create(t.Context(), c))
	return c
}

type postOpt func(*models.Post)

func inCategory(c *models.Category) postOpt {
	return func(p *models.Post) { p.CategoryID = &c.ID }
}

func unpublished() postOpt {
	return func(p *models.Post) { p.IsPublished = false }
}

func mustPost(t *testing.T, author *models.User, title string, pubDate time.Time, opts ...postOpt) *models.Post {
	t.Helper()
	p := &models.Post{Title: title, Text: title + " text", PubDate: pubDate, AuthorID: author.ID, IsPublished: true}
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(t, NewPostRepository(testDB).Create(t.Context(), p))
	return p
}

func mustComment(t *testing.T, author *models.User, post *models.Post, text string, at time.Time) *models.Comment {
	t.Helper()
	c := &models.Comment{Text: text, AuthorID: author.ID, PostID: post.ID, CreatedAt: at}
	require.NoError(t, NewCommentRepository(testDB).Create(t.Context(), c))
	return c
}

func titles(posts []*models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Title)
	}
	return out
}
