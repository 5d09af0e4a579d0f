package repository

import (
	"time"

	"gorm.io/gorm"
)

// PostQuery selects which posts a listing returns. Index, category and
// profile pages all go through it; it is the only place the visibility
// rules are expressed in SQL.
type PostQuery struct {
	// CategoryID restricts the listing to one category when non-zero.
	CategoryID uint
	// AuthorID restricts the listing to one author when non-zero.
	AuthorID uint
	// PublicOnly drops posts that are unpublished, scheduled after Now,
	// or filed under an unpublished category.
	PublicOnly bool
	Now        time.Time
}

// publiclyVisible mirrors policy.PubliclyVisible: a post scheduled for
// exactly now is already visible.
func publiclyVisible(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Joins("LEFT JOIN categories ON categories.id = posts.category_id").
			Where("posts.is_published = ?", true).
			Where("posts.pub_date <= ?", now.UTC()).
			Where("(posts.category_id IS NULL OR categories.is_published = ?)", true)
	}
}

func (q PostQuery) apply(db *gorm.DB) *gorm.DB {
	if q.PublicOnly {
		db = publiclyVisible(q.Now)(db)
	}
	if q.CategoryID != 0 {
		db = db.Where("posts.category_id = ?", q.CategoryID)
	}
	if q.AuthorID != 0 {
		db = db.Where("posts.author_id = ?", q.AuthorID)
	}
	return db
}
