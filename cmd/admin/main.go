// Command admin manages categories and locations from the command line.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"blogicum/internal/config"
	"blogicum/internal/database"
	"blogicum/internal/models"
	"blogicum/internal/repository"
	"blogicum/internal/validation"
)

const usage = `Usage:
  go run ./cmd/admin category list
  go run ./cmd/admin category create <slug> <title> [description]
  go run ./cmd/admin category publish|unpublish|delete <id>
  go run ./cmd/admin location list
  go run ./cmd/admin location create <name>
  go run ./cmd/admin location publish|unpublish|delete <id>`

func main() {
	if len(os.Args) < 3 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close() }()

	ctx := context.Background()
	switch os.Args[1] {
	case "category":
		err = runCategory(ctx, repository.NewCategoryRepository(db), os.Args[2], os.Args[3:])
	case "location":
		err = runLocation(ctx, repository.NewLocationRepository(db), os.Args[2], os.Args[3:])
	default:
		err = fmt.Errorf("unknown entity %q\n%s", os.Args[1], usage)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func parseID(args []string) (uint, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("missing id\n%s", usage)
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return uint(id), nil
}

func runCategory(ctx context.Context, repo repository.CategoryRepository, cmd string, args []string) error {
	switch cmd {
	case "list":
		categories, err := repo.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tSLUG\tTITLE\tPUBLISHED")
		for _, c := range categories {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%t\n", c.ID, c.Slug, c.Title, c.IsPublished)
		}
		return w.Flush()

	case "create":
		if len(args) < 2 {
			return fmt.Errorf("category create needs <slug> <title>\n%s", usage)
		}
		if err := validation.ValidateSlug(args[0]); err != nil {
			return err
		}
		category := &models.Category{Slug: args[0], Title: args[1], IsPublished: true}
		if len(args) > 2 {
			category.Description = strings.Join(args[2:], " ")
		}
		if err := repo.Create(ctx, category); err != nil {
			return err
		}
		fmt.Printf("Created category %q (ID: %d)\n", category.Slug, category.ID)
		return nil

	case "publish", "unpublish":
		id, err := parseID(args)
		if err != nil {
			return err
		}
		category, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		category.IsPublished = cmd == "publish"
		if err := repo.Update(ctx, category); err != nil {
			return err
		}
		fmt.Printf("Category %q published=%t\n", category.Slug, category.IsPublished)
		return nil

	case "delete":
		id, err := parseID(args)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Deleted category %d; its posts are now uncategorized\n", id)
		return nil
	}
	return fmt.Errorf("unknown category command %q\n%s", cmd, usage)
}

func runLocation(ctx context.Context, repo repository.LocationRepository, cmd string, args []string) error {
	switch cmd {
	case "list":
		locations, err := repo.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tNAME\tPUBLISHED")
		for _, l := range locations {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%t\n", l.ID, l.Name, l.IsPublished)
		}
		return w.Flush()

	case "create":
		if len(args) < 1 {
			return fmt.Errorf("location create needs <name>\n%s", usage)
		}
		location := &models.Location{Name: strings.Join(args, " "), IsPublished: true}
		if err := repo.Create(ctx, location); err != nil {
			return err
		}
		fmt.Printf("Created location %q (ID: %d)\n", location.Name, location.ID)
		return nil

	case "publish", "unpublish":
		id, err := parseID(args)
		if err != nil {
			return err
		}
		location, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		location.IsPublished = cmd == "publish"
		if err := repo.Update(ctx, location); err != nil {
			return err
		}
		fmt.Printf("Location %q published=%t\n", location.Name, location.IsPublished)
		return nil

	case "delete":
		id, err := parseID(args)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Deleted location %d\n", id)
		return nil
	}
	return fmt.Errorf("unknown location command %q\n%s", cmd, usage)
}
