package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func requestWithOrigin(origin string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

func TestOriginPolicy(t *testing.T) {
	policy := newOriginPolicy([]string{"http://localhost:8080", "HTTPS://Chat.Example.COM"}, zerolog.Nop())

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"exact match", "http://localhost:8080", true},
		{"case-insensitive match", "https://chat.example.com", true},
		{"different host", "http://evil.example.com", false},
		{"different scheme", "https://localhost:8080", false},
		{"missing header", "", false},
		{"malformed origin", "not a url", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.check(requestWithOrigin(tt.origin)))
		})
	}
}

func TestOriginPolicyWildcard(t *testing.T) {
	policy := newOriginPolicy([]string{"*"}, zerolog.Nop())

	assert.True(t, policy.check(requestWithOrigin("http://anywhere.example.com")))
	// Non-browser clients send no Origin header at all.
	assert.True(t, policy.check(requestWithOrigin("")))
}

func TestNormalizeOriginsSkipsInvalidEntries(t *testing.T) {
	normalized, allowAll := normalizeOrigins([]string{" http://a.example.com ", "", "garbage", "*"}, zerolog.Nop())

	assert.Equal(t, []string{"http://a.example.com"}, normalized)
	assert.True(t, allowAll)
}
