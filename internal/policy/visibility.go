// Package policy holds the visibility and ownership rules shared by every
// handler. Functions here are pure: callers pass the viewer and the instant.
package policy

import (
	"time"

	"blogicum/internal/models"
)

// Actor is the identity behind a request. The zero value is the anonymous actor.
type Actor struct {
	ID uint
}

// Anonymous is the actor of unauthenticated requests.
var Anonymous = Actor{}

// Authenticated reports whether the actor is a signed-in user.
func (a Actor) Authenticated() bool {
	return a.ID != 0
}

// Is reports whether the actor is the user with the given id.
func (a Actor) Is(userID uint) bool {
	return a.Authenticated() && a.ID == userID
}

// Released reports whether pubDate has been reached at now.
// A post scheduled for exactly now counts as released.
func Released(pubDate, now time.Time) bool {
	return !pubDate.After(now)
}

// CategoryBrowsable reports whether a category may be listed publicly.
func CategoryBrowsable(c *models.Category) bool {
	return c != nil && c.IsPublished
}

// PubliclyVisible reports whether any reader, signed in or not, may see the post.
// The post's Category must be loaded when CategoryID is set.
func PubliclyVisible(p *models.Post, now time.Time) bool {
	if p == nil || !p.IsPublished {
		return false
	}
	if p.CategoryID != nil && !CategoryBrowsable(p.Category) {
		return false
	}
	return Released(p.PubDate, now)
}

// PostVisible reports whether viewer may see the post. Authors always see their own.
func PostVisible(p *models.Post, viewer Actor, now time.Time) bool {
	if p == nil {
		return false
	}
	if viewer.Is(p.AuthorID) {
		return true
	}
	return PubliclyVisible(p, now)
}

// CommentVisible follows the visibility of the parent post.
func CommentVisible(_ *models.Comment, parent *models.Post, viewer Actor, now time.Time) bool {
	return PostVisible(parent, viewer, now)
}

// CanComment reports whether new comments may be attached to the post.
// Only publicly visible posts accept comments, including from their author.
func CanComment(p *models.Post, viewer Actor, now time.Time) bool {
	return viewer.Authenticated() && PubliclyVisible(p, now)
}
