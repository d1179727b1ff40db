package httpapi

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// originPolicy decides which Origin headers may open a WebSocket.
type originPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
	log      zerolog.Logger
}

func newOriginPolicy(origins []string, log zerolog.Logger) *originPolicy {
	normalized, allowAll := normalizeOrigins(origins, log)
	return &originPolicy{
		allowAll: allowAll,
		allowed: lo.SliceToMap(normalized, func(o string) (string, struct{}) {
			return o, struct{}{}
		}),
		log: log,
	}
}

func normalizeOrigins(origins []string, log zerolog.Logger) ([]string, bool) {
	normalized := make([]string, 0, len(origins))
	allowAll := false

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			allowAll = true
			continue
		}
		n, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Warn().Str("origin", origin).Msg("ignoring invalid origin in configuration")
			continue
		}
		normalized = append(normalized, n)
	}
	return normalized, allowAll
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

// check is plugged into the WebSocket upgrader as CheckOrigin.
func (p *originPolicy) check(r *http.Request) bool {
	if p.allowAll {
		return true
	}

	header := r.Header.Get("Origin")
	normalized, ok := normalizeOrigin(header)
	if !ok {
		p.log.Warn().Str("origin", header).Msg("blocked connection with malformed origin")
		return false
	}
	if _, ok := p.allowed[normalized]; ok {
		return true
	}

	p.log.Warn().Str("origin", header).Msg("blocked connection from disallowed origin")
	return false
}
