package services

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	// bareAmpersand matches an escaped "&" that cannot start a character reference.
	bareAmpersand = regexp.MustCompile(`&amp;([^#A-Za-z0-9]|$)`)

	// ugcPolicy strips scripts, event handlers and unsafe URLs from rich text.
	ugcPolicy = bluemonday.UGCPolicy()
	// plainPolicy removes every tag from short single-line fields.
	plainPolicy = bluemonday.StrictPolicy()
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// slugify lowercases s and collapses every run of non-alphanumerics into a dash.
func slugify(s string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	return strings.Trim(slug, "-")
}

// sanitizeRichText keeps safe markup. Apostrophes and free-standing ampersands
// are stored literally; they are valid in HTML text as written.
func sanitizeRichText(s string) string {
	clean := ugcPolicy.Sanitize(s)
	clean = strings.ReplaceAll(clean, "&#39;", "'")
	clean = bareAmpersand.ReplaceAllString(clean, "&$1")
	return strings.TrimSpace(clean)
}

// sanitizePlain strips tags and stores the remaining text unescaped. Escaping
// belongs to whatever renders it.
func sanitizePlain(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainPolicy.Sanitize(s)))
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string {
	return &s
}

// byIDOrSlug matches a UUID against the primary key and anything else against
// the slug column, keeping non-UUID input away from uuid-typed columns.
func byIDOrSlug(query *gorm.DB, idOrSlug string) *gorm.DB {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if _, err := uuid.Parse(idOrSlug); err == nil {
		return query.Where("id = ?", idOrSlug)
	}
	return query.Where("slug = ?", idOrSlug)
}
