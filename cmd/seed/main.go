// Command seed loads reference data and generates demo content.
package main

import (
	"flag"
	"log"

	"blogicum/internal/config"
	"blogicum/internal/database"
	"blogicum/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()

	referenceOnly := flag.Bool("reference", false, "Only load the reference categories and locations")
	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	numPosts := flag.Int("posts", defaults.NumPosts, "Number of posts to create")
	comments := flag.Int("comments", defaults.CommentsPerPost, "Comments per post")
	shouldClean := flag.Bool("clean", false, "Remove existing users, posts and comments first")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing it")
	skipBcrypt := flag.Bool("skip-bcrypt", false, "Store a precomputed password hash for speed")
	maxDays := flag.Int("days", defaults.MaxDays, "Spread publication dates over this many past days")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close() }()

	if *referenceOnly {
		if err := seed.Reference(db); err != nil {
			log.Fatalf("Reference data failed: %v", err)
		}
		log.Println("Reference data loaded")
		return
	}

	opts := defaults
	opts.NumUsers = *numUsers
	opts.NumPosts = *numPosts
	opts.CommentsPerPost = *comments
	opts.ShouldClean = *shouldClean
	opts.DryRun = *dryRun
	opts.SkipBcrypt = *skipBcrypt
	opts.MaxDays = *maxDays
	opts.RandSeed = *randSeed

	summary, err := seed.Seed(db, opts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Created %d users, %d posts, %d comments", summary.Users, summary.Posts, summary.Comments)
	if !opts.DryRun && summary.Users > 0 {
		log.Printf("Demo users share the password: %s", seed.DemoPassword)
	}
}
