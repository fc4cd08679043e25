// Package updatemeta provides the update_post_meta and update_user_meta actions,
// which write a single metadata key on a host entity.
package updatemeta

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/template"
)

const (
	PostSlug = "update_post_meta"
	UserSlug = "update_user_meta"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Action updates metadata on one kind of entity.
type Action struct {
	store   persistence.EntityStore
	logger  *slog.Logger
	kind    models.EntityKind
	slug    string
	label   string
	idField string
	noun    string
}

// NewPostMeta builds update_post_meta. The target id is read from config.post_id,
// falling back to payload.post_id.
func NewPostMeta(store persistence.EntityStore, logger *slog.Logger) *Action {
	return &Action{
		store:   store,
		logger:  logger.With("module", PostSlug),
		kind:    models.EntityPost,
		slug:    PostSlug,
		label:   "Update Post Meta",
		idField: "post_id",
		noun:    "Post",
	}
}

// NewUserMeta builds update_user_meta. The target id is read from config.user_id,
// falling back to payload.user_id.
func NewUserMeta(store persistence.EntityStore, logger *slog.Logger) *Action {
	return &Action{
		store:   store,
		logger:  logger.With("module", UserSlug),
		kind:    models.EntityUser,
		slug:    UserSlug,
		label:   "Update User Meta",
		idField: "user_id",
		noun:    "User",
	}
}

func (a *Action) Slug() string {
	return a.slug
}

func (a *Action) Label() string {
	return a.label
}

func (*Action) Group() string {
	return "Data"
}

func (a *Action) ConfigSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"meta_key", "meta_value"},
		"properties": map[string]any{
			a.idField: map[string]any{
				"type":        "integer",
				"description": fmt.Sprintf("Target %s ID. Falls back to payload.%s.", a.kind, a.idField),
			},
			"meta_key": map[string]any{
				"type": "string",
			},
			"meta_value": map[string]any{
				"type":        "string",
				"description": "Value to store. Supports {{placeholders}}.",
			},
		},
	}
}

// Execute writes the sanitized meta value. Missing or unknown entities are failures;
// store errors are returned as faults.
func (a *Action) Execute(ctx context.Context, config map[string]any, payload map[string]any) (models.ActionResult, error) {
	id := a.targetID(config, payload)
	if id <= 0 {
		return models.Failure(fmt.Sprintf("Invalid %s ID.", a.kind), nil), nil
	}

	key := SanitizeKey(template.Text(config["meta_key"]))
	if key == "" {
		return models.Failure("Meta key is required.", nil), nil
	}

	value := SanitizeText(template.Interpolate(template.Text(config["meta_value"]), payload))

	exists, err := a.store.Exists(ctx, a.kind, id)
	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to look up %s %d: %w", a.kind, id, err)
	}

	if !exists {
		return models.Failure(fmt.Sprintf("%s %d not found.", a.noun, id), nil), nil
	}

	if err := a.store.SetMeta(ctx, a.kind, id, key, value); err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to update %s %d meta %q: %w", a.kind, id, key, err)
	}

	a.logger.Debug("Meta updated", "id", id, "key", key)

	return models.Success(a.successMessage(key, id), map[string]any{
		a.idField:    id,
		"meta_key":   key,
		"meta_value": value,
	}), nil
}

func (a *Action) successMessage(key string, id int64) string {
	if a.kind == models.EntityUser {
		return fmt.Sprintf("User meta %q updated for user %d.", key, id)
	}

	return fmt.Sprintf("Post meta %q updated on post %d.", key, id)
}

// targetID prefers a non-null config value over the payload field.
func (a *Action) targetID(config map[string]any, payload map[string]any) int64 {
	if value, ok := config[a.idField]; ok && value != nil {
		return int64(template.Float(value))
	}

	return int64(template.Float(payload[a.idField]))
}

// SanitizeKey lowercases the key and drops everything except a-z, 0-9, dashes and
// underscores.
func SanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		r = unicode.ToLower(r)

		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return -1
		}
	}, key)
}

// SanitizeText strips markup and collapses whitespace, including line breaks.
func SanitizeText(value string) string {
	value = strings.ToValidUTF8(value, "")
	value = tagPattern.ReplaceAllString(value, "")

	return strings.Join(strings.Fields(value), " ")
}
