package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

// Mask replaces every PII match before it reaches storage.
const Mask = "***"

// Common patterns for NewPIIMiddleware.
const (
	PatternEmail = `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`
	PatternSSN   = `\b\d{3}-\d{2}-\d{4}\b`
	PatternCard  = `\b(?:\d[ -]?){13,16}\b`
)

type piiMiddleware struct {
	passthrough
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks substrings of message content and
// tool arguments matching the patterns. Masking is one-way: Load returns masked text.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.Store) ports.Store {
		return &piiMiddleware{passthrough: passthrough{next: next}, patterns: patterns}
	}
}

func (m *piiMiddleware) Append(ctx context.Context, sessionID, node string, msgs ...domain.Message) error {
	// Clone so the in-flight conversation keeps the original text.
	masked := cloneAll(msgs)
	_ = transform(masked, func(s string) (string, error) {
		for _, p := range m.patterns {
			s = p.ReplaceAllString(s, Mask)
		}
		return s, nil
	})
	return m.next.Append(ctx, sessionID, node, masked...)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID, node string) (domain.MessageTree, error) {
	return m.next.Load(ctx, sessionID, node)
}
