package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextAccessors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		ctx       *Context
		version   string
		buildDate string
	}{
		{"nil context", nil, "unknown", "unknown"},
		{"empty fields", &Context{}, "unknown", "unknown"},
		{"populated", &Context{Version: "v1.2.0", BuildDate: "2026-10-01"}, "v1.2.0", "2026-10-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.version, tt.ctx.GetVersion())
			assert.Equal(t, tt.buildDate, tt.ctx.GetBuildDate())
		})
	}

	assert.Equal(t, "v1.2.0 (built 2026-10-01)", (&Context{Version: "v1.2.0", BuildDate: "2026-10-01"}).String())
}
