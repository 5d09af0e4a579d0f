package featureflags

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, 1), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, m.Enabled(name, 1), name)
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,broken=x%")

	assert.True(t, m.Enabled("always", 0))
	assert.False(t, m.Enabled("never", 1))
	assert.False(t, m.Enabled("broken", 1))
	assert.False(t, m.Enabled("canary", 0), "percentage rollout requires a user")

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42), "rollout must be deterministic per user")
	}
}

func TestParseNamesAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,X=on, y = 20% ,z=off,=on,w=")

	assert.Equal(t, []string{"x", "y", "z"}, m.Names())
	snap := m.Snapshot(123)
	assert.Len(t, snap, 3)
	assert.True(t, snap["x"])
	assert.False(t, snap["z"])
}

func TestEnabledOr(t *testing.T) {
	m := NewManager("registration=off")

	assert.False(t, m.EnabledOr(Registration, 0, true))
	assert.True(t, m.EnabledOr(ImageUploads, 0, true))

	var nilManager *Manager
	assert.True(t, nilManager.EnabledOr(Registration, 0, true))
	assert.False(t, nilManager.Enabled(Registration, 0))
}

func TestGate(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		status int
	}{
		{"enabled", "registration=on", fiber.StatusOK},
		{"disabled", "registration=off", fiber.StatusNotFound},
		{"absent", "", fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/auth/registration/", NewManager(tt.raw).Gate(Registration, nil), func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/auth/registration/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
