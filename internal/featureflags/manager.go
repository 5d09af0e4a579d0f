// Package featureflags evaluates FEATURE_FLAGS switches such as
// "registration=on,image_uploads=50%".
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"

	"blogicum/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Known flags.
const (
	// Registration controls sign-up at /auth/registration/.
	Registration = "registration"
	// ImageUploads controls whether post forms accept an image.
	ImageUploads = "image_uploads"
)

// Manager evaluates feature flags parsed from a comma-separated key=value list.
type Manager struct {
	flags map[string]string
}

// NewManager parses raw. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	out := make(map[string]string)

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled reports whether a flag is on for userID.
// Values are on/true/1, off/false/0, or N% for a deterministic per-user
// rollout. Percentage flags are off for anonymous users unless N is 100.
// Unknown flags are off.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}

	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if userID == 0 {
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// EnabledOr is Enabled with a fallback for flags missing from the configuration.
func (m *Manager) EnabledOr(name string, userID uint, fallback bool) bool {
	if m == nil {
		return fallback
	}
	if _, ok := m.flags[normalize(name)]; !ok {
		return fallback
	}
	return m.Enabled(name, userID)
}

// Names returns the configured flag names in sorted order.
func (m *Manager) Names() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.flags))
	for k := range m.flags {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool)
	for _, name := range m.Names() {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

// Gate answers 404 while the flag is off, so a disabled feature looks absent.
// userID extracts the current user; it may be nil.
func (m *Manager) Gate(name string, userID func(*fiber.Ctx) uint) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var uid uint
		if userID != nil {
			uid = userID(c)
		}
		if !m.Enabled(name, uid) {
			return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Page", c.Path()))
		}
		return c.Next()
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
