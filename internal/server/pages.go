package server

import (
	"embed"
	"strings"

	"github.com/gofiber/fiber/v2"
)

//go:embed content/*.md
var pageContent embed.FS

// StaticPage is the body of an informational page.
type StaticPage struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func loadPage(name string) (StaticPage, error) {
	raw, err := pageContent.ReadFile("content/" + name + ".md")
	if err != nil {
		return StaticPage{}, err
	}
	text := string(raw)
	title, _, _ := strings.Cut(text, "\n")
	return StaticPage{
		Title:   strings.TrimSpace(strings.TrimPrefix(title, "#")),
		Content: text,
	}, nil
}

func (s *Server) page(c *fiber.Ctx, name string) error {
	p, err := loadPage(name)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(p)
}

// About handles GET /pages/about/
// @Summary About page
// @Tags pages
// @Produce json
// @Success 200 {object} StaticPage
// @Router /pages/about/ [get]
func (s *Server) About(c *fiber.Ctx) error {
	return s.page(c, "about")
}

// Rules handles GET /pages/rules/
// @Summary Site rules
// @Tags pages
// @Produce json
// @Success 200 {object} StaticPage
// @Router /pages/rules/ [get]
func (s *Server) Rules(c *fiber.Ctx) error {
	return s.page(c, "rules")
}
