// Package seed loads reference data and generates demo content for
// development databases.
package seed

import (
	"fmt"
	"log"

	"blogicum/internal/models"

	"gorm.io/gorm"
)

// Options configures the demo seeder.
type Options struct {
	NumUsers        int
	NumPosts        int
	CommentsPerPost int
	// ShouldClean removes existing users, posts and comments first.
	ShouldClean bool
	SkipBcrypt  bool
	DryRun      bool
	MaxDays     int
	BatchSize   int
	// DraftRatio and ScheduledRatio are the shares of unpublished and future posts.
	DraftRatio     float64
	ScheduledRatio float64
	RandSeed       int64
}

// DefaultOptions returns a small demo data set.
func DefaultOptions() Options {
	return Options{
		NumUsers:        5,
		NumPosts:        30,
		CommentsPerPost: 3,
		MaxDays:         60,
		BatchSize:       100,
		DraftRatio:      0.1,
		ScheduledRatio:  0.1,
	}
}

// Summary reports what Seed created.
type Summary struct {
	Users    int
	Posts    int
	Comments int
}

// Seed loads reference data and populates the database with demo users,
// posts and comments.
func Seed(db *gorm.DB, opts Options) (*Summary, error) {
	log.Printf("Seeding database: %d users, %d posts", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean && !opts.DryRun {
		if err := clearData(db); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}
	if !opts.DryRun {
		if err := Reference(db); err != nil {
			return nil, err
		}
	}

	f := NewFactory(db, opts)
	summary := &Summary{}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser()
		if err != nil {
			log.Printf("Skipping user: %v", err)
			continue
		}
		users = append(users, user)
	}
	summary.Users = len(users)
	if len(users) == 0 {
		return summary, nil
	}

	var categories []models.Category
	var locations []models.Location
	if !opts.DryRun {
		if err := db.Find(&categories).Error; err != nil {
			return nil, err
		}
		if err := db.Find(&locations).Error; err != nil {
			return nil, err
		}
	}

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		author := users[f.rng.Intn(len(users))]
		posts = append(posts, f.BuildPost(author, func(p *models.Post) {
			if len(categories) > 0 && f.rng.Intn(4) > 0 {
				p.CategoryID = &categories[f.rng.Intn(len(categories))].ID
			}
			if len(locations) > 0 && f.rng.Intn(2) == 0 {
				p.LocationID = &locations[f.rng.Intn(len(locations))].ID
			}
		}))
	}
	if err := f.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	summary.Posts = len(posts)

	for _, post := range posts {
		for j := 0; j < opts.CommentsPerPost; j++ {
			author := users[f.rng.Intn(len(users))]
			if _, err := f.CreateComment(author, post); err != nil {
				return nil, fmt.Errorf("create comment: %w", err)
			}
			summary.Comments++
		}
	}

	log.Printf("Seeding completed: %d users, %d posts, %d comments", summary.Users, summary.Posts, summary.Comments)
	return summary, nil
}

func clearData(db *gorm.DB) error {
	log.Println("Clearing existing users, posts and comments")
	return db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Comment{}, &models.Post{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
