package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"blogicum/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := &models.Post{Title: "Test Post", Text: "Content", PubDate: base, AuthorID: 1, IsPublished: true}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(ctx, post)
	assert.NoError(t, err)
	assert.Equal(t, uint(1), post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT posts.*, (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comment_count FROM "posts" WHERE posts.id = $1`)).
		WithArgs(42, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	post, err := repo.GetByID(context.Background(), 42)
	assert.Nil(t, post)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_CountPublicSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "posts" LEFT JOIN categories ON categories.id = posts.category_id ` +
		`WHERE posts.is_published = \$1 AND posts.pub_date <= \$2 AND .*posts.category_id IS NULL OR categories.is_published = \$3.* ` +
		`AND posts.category_id = \$4`).
		WithArgs(true, base, true, 7).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.Count(context.Background(), PostQuery{PublicOnly: true, Now: base, CategoryID: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_PublicListing(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := NewPostRepository(testDB)

	author := mustUser(t, "author")
	open := mustCategory(t, "open", true)
	hidden := mustCategory(t, "hidden", false)

	mustPost(t, author, "P1", base.Add(-time.Hour), inCategory(open))
	mustPost(t, author, "P2", base.Add(time.Hour), inCategory(open))
	mustPost(t, author, "P3", base.Add(-2*time.Hour), unpublished())
	mustPost(t, author, "P4", base.Add(-3*time.Hour), inCategory(hidden))
	mustPost(t, author, "P5", base.Add(-4*time.Hour))
	mustPost(t, author, "P6", base)

	filter := PostQuery{PublicOnly: true, Now: base}
	posts, err := repo.List(ctx, filter, 10, 0)
	require.NoError(t, err)
	// P6 is published exactly now and counts as released.
	assert.Equal(t, []string{"P6", "P1", "P5"}, titles(posts))

	n, err := repo.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	posts, err = repo.List(ctx, PostQuery{PublicOnly: true, Now: base, CategoryID: open.ID}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, titles(posts))
	require.NotNil(t, posts[0].Category)
	assert.Equal(t, "open", posts[0].Category.Slug)
	assert.Equal(t, "author", posts[0].Author.Username)
}

func TestPostRepository_ProfileListing(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := NewPostRepository(testDB)

	author := mustUser(t, "writer")
	other := mustUser(t, "other")
	mustPost(t, author, "P1", base.Add(-time.Hour))
	mustPost(t, author, "P2", base.Add(time.Hour))
	mustPost(t, other, "X", base.Add(-time.Hour))

	own, err := repo.List(ctx, PostQuery{AuthorID: author.ID, Now: base}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"P2", "P1"}, titles(own))

	public, err := repo.List(ctx, PostQuery{AuthorID: author.ID, PublicOnly: true, Now: base}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, titles(public))
}

func TestPostRepository_OrderTieBreakAndPaging(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := NewPostRepository(testDB)

	author := mustUser(t, "pager")
	for _, title := range []string{"A", "B", "C"} {
		mustPost(t, author, title, base.Add(-time.Hour))
	}

	filter := PostQuery{PublicOnly: true, Now: base}
	first, err := repo.List(ctx, filter, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B"}, titles(first))

	second, err := repo.List(ctx, filter, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, titles(second))
}

func TestPostRepository_CommentCountAndDelete(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := NewPostRepository(testDB)
	comments := NewCommentRepository(testDB)

	author := mustUser(t, "poster")
	reader := mustUser(t, "reader")
	post := mustPost(t, author, "P", base.Add(-time.Hour))
	mustComment(t, reader, post, "one", base)
	mustComment(t, reader, post, "two", base.Add(time.Minute))

	loaded, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.CommentCount)

	listed, err := repo.List(ctx, PostQuery{PublicOnly: true, Now: base}, 10, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 2, listed[0].CommentCount)

	require.NoError(t, repo.Delete(ctx, post.ID))

	_, err = repo.GetByID(ctx, post.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	left, err := comments.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	err = repo.Delete(ctx, post.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostRepository_Update(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := NewPostRepository(testDB)

	author := mustUser(t, "editor")
	post := mustPost(t, author, "Draft", base)

	loaded, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	loaded.Title = "Final"
	loaded.IsPublished = false
	require.NoError(t, repo.Update(ctx, loaded))

	again, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", again.Title)
	assert.False(t, again.IsPublished)
	assert.Equal(t, author.ID, again.AuthorID)
}

func TestPostRepository_ZonedPubDate(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := NewPostRepository(testDB)
	moscow := time.FixedZone("MSK", 3*60*60)

	author := mustUser(t, "traveller")
	// 11:00 UTC written as 14:00+03:00; as text it would sort after 12:00Z.
	zoned := mustPost(t, author, "zoned", base.Add(-time.Hour).In(moscow))
	assert.Equal(t, time.UTC, zoned.PubDate.Location())

	posts, err := repo.List(ctx, PostQuery{PublicOnly: true, Now: base}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"zoned"}, titles(posts))

	// Rescheduling with a zoned time goes through the same normalization.
	zoned.PubDate = base.Add(30 * time.Minute).In(moscow)
	require.NoError(t, repo.Update(ctx, zoned))
	posts, err = repo.List(ctx, PostQuery{PublicOnly: true, Now: base}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, posts)

	posts, err = repo.List(ctx, PostQuery{PublicOnly: true, Now: base.Add(time.Hour).In(moscow)}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"zoned"}, titles(posts))
}
