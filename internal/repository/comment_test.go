package repository

import (
	"context"
	"testing"
	"time"

	"blogicum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_ListByPostOldestFirst(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := NewCommentRepository(testDB)

	author := mustUser(t, "op")
	reader := mustUser(t, "commenter")
	post := mustPost(t, author, "P", base.Add(-time.Hour))

	mustComment(t, reader, post, "second", base.Add(time.Minute))
	mustComment(t, reader, post, "first", base)
	mustComment(t, author, post, "third", base.Add(2*time.Minute))

	comments, err := repo.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "first", comments[0].Text)
	assert.Equal(t, "second", comments[1].Text)
	assert.Equal(t, "third", comments[2].Text)
	assert.Equal(t, "commenter", comments[0].Author.Username)
}

func TestCommentRepository_UpdateAndDelete(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := NewCommentRepository(testDB)

	author := mustUser(t, "op2")
	post := mustPost(t, author, "P", base)
	comment := mustComment(t, author, post, "typo", base)

	loaded, err := repo.GetByID(ctx, comment.ID)
	require.NoError(t, err)
	loaded.Text = "fixed"
	require.NoError(t, repo.Update(ctx, loaded))

	again, err := repo.GetByID(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "fixed", again.Text)
	assert.Equal(t, post.ID, again.PostID)

	require.NoError(t, repo.Delete(ctx, comment.ID))
	_, err = repo.GetByID(ctx, comment.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.True(t, models.HasCode(repo.Delete(ctx, comment.ID), models.CodeNotFound))
}
