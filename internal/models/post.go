// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a blog entry. PubDate may lie in the future for scheduled posts.
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:256;not null" json:"title"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	Image       string    `gorm:"size:512" json:"image,omitempty"`
	PubDate     time.Time `gorm:"not null;index" json:"pub_date"`
	AuthorID    uint      `gorm:"not null;index" json:"author_id"`
	Author      User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	CategoryID  *uint     `gorm:"index" json:"category_id,omitempty"`
	Category    *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
	LocationID  *uint     `gorm:"index" json:"location_id,omitempty"`
	Location    *Location `gorm:"foreignKey:LocationID;constraint:OnDelete:SET NULL" json:"location,omitempty"`
	IsPublished bool      `gorm:"not null" json:"is_published"`
	// CommentCount is not persisted; computed at query time
	CommentCount int       `gorm:"->;-:migration" json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OwnerID returns the id of the post's author.
func (p *Post) OwnerID() uint {
	if p == nil {
		return 0
	}
	return p.AuthorID
}

// BeforeSave stores PubDate in UTC. SQLite keeps times as text, so the
// publication filter only compares correctly when every row shares a zone.
func (p *Post) BeforeSave(_ *gorm.DB) error {
	p.PubDate = p.PubDate.UTC()
	return nil
}
