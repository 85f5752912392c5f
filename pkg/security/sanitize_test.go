package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"plain address", "Jl. M.H. Thamrin No.1, Jakarta", 0, "Jl. M.H. Thamrin No.1, Jakarta"},
		{"keeps ampersand", "Sudirman & Thamrin", 0, "Sudirman & Thamrin"},
		{"collapses whitespace", "  Monas \n\t Jakarta  ", 0, "Monas Jakarta"},
		{"strips script", "Monas<script>alert(1)</script>", 0, "Monas"},
		{"strips tags", "<b>Kota Tua</b>", 0, "Kota Tua"},
		{"strips null bytes", "Bandung\x00", 0, "Bandung"},
		{"truncates runes", "Yogyakarta", 4, "Yogy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeInput(tt.input, tt.max))
		})
	}
}

func TestContainsXSS(t *testing.T) {
	assert.True(t, ContainsXSS(`<img src=x onerror=alert(1)>`))
	assert.True(t, ContainsXSS(`javascript:alert(1)`))
	assert.False(t, ContainsXSS("Bundaran HI"))
}

func TestTruncateStringMultibyte(t *testing.T) {
	assert.Equal(t, "Café", TruncateString("Café Batavia", 4))
	assert.Equal(t, "short", TruncateString("short", 10))
}
