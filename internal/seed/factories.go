package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"blogicum/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DemoPassword is the password of every generated account.
const DemoPassword = "Blogicum-Demo-2026!"

// Factory builds domain entities and persists them to the database.
// It is used by the demo seeder and by tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	fake *gofakeit.Faker
	rng  *rand.Rand
	now  func() time.Time
	// synthetic ID counter when running in DryRun mode
	nextID uint
	// hashed DemoPassword, computed once
	password string
}

// NewFactory creates a Factory bound to db. A zero opts.RandSeed seeds from the clock.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:     db,
		opts:   opts,
		fake:   gofakeit.New(seed),
		rng:    rand.New(rand.NewSource(seed)), // #nosec G404: acceptable for seeding
		now:    time.Now,
		nextID: 1000,
	}
}

func (f *Factory) hashedPassword() string {
	if f.password != "" {
		return f.password
	}
	if f.opts.SkipBcrypt {
		f.password = DemoPassword
		return f.password
	}
	hashed, _ := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	f.password = string(hashed)
	return f.password
}

// BuildUser constructs a user without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	first, last := f.fake.FirstName(), f.fake.LastName()
	username := strings.ToLower(fmt.Sprintf("%s_%s%d", first, last, f.fake.Number(100, 999)))
	username = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return -1
	}, username)
	if len(username) > 30 {
		username = username[:30]
	}

	user := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: first,
		LastName:  last,
		Password:  f.hashedPassword(),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser constructs and persists a sample user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s", user.Username)
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post by author without persisting it. Publication
// dates spread over the last MaxDays; a share of posts are drafts or scheduled.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	offset := time.Duration(f.rng.Intn(maxDays*24*60)) * time.Minute

	post := &models.Post{
		Title:       strings.TrimSuffix(f.fake.Sentence(5), "."),
		Text:        f.fake.Paragraph(2, 4, 10, "\n\n"),
		AuthorID:    author.ID,
		PubDate:     f.now().UTC().Add(-offset),
		IsPublished: true,
	}

	switch roll := f.rng.Float64(); {
	case roll < f.opts.DraftRatio:
		post.IsPublished = false
	case roll < f.opts.DraftRatio+f.opts.ScheduledRatio:
		post.PubDate = f.now().UTC().Add(offset)
	}

	if len([]rune(post.Title)) > 256 {
		post.Title = string([]rune(post.Title)[:256])
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost constructs and persists a sample post.
func (f *Factory) CreatePost(author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, overrides...)

	if f.opts.DryRun {
		f.nextID++
		post.ID = f.nextID
		log.Printf("[dry-run] CreatePost: author=%d title=%q", post.AuthorID, post.Title)
		return post, nil
	}

	if err := f.db.Omit(clause.Associations).Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreatePostsBatch persists multiple posts in a single DB call when possible.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		log.Printf("[dry-run] CreatePostsBatch: %d posts (no DB write)", len(posts))
		return nil
	}
	batch := f.opts.BatchSize
	if batch <= 0 {
		batch = 100
	}
	return f.db.Omit(clause.Associations).CreateInBatches(posts, batch).Error
}

// CreateComment constructs and persists a sample comment by author on post.
func (f *Factory) CreateComment(author *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		Text:     f.fake.Sentence(12),
		AuthorID: author.ID,
		PostID:   post.ID,
	}
	for _, override := range overrides {
		override(comment)
	}

	if f.opts.DryRun {
		f.nextID++
		comment.ID = f.nextID
		return comment, nil
	}

	if err := f.db.Omit(clause.Associations).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}
