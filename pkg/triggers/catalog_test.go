package triggers

import (
	"testing"

	"github.com/dukex/autoflow/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	catalog := NewCatalog(Defaults()...)

	slugs := make([]string, 0)
	for _, descriptor := range catalog.All() {
		slugs = append(slugs, descriptor.Slug)
	}

	assert.Equal(t, []string{
		"post_published",
		"comment_posted",
		"user_registered",
		"user_role_changed",
		"woo_order_status_changed",
		"inbound_webhook",
	}, slugs)

	descriptor, ok := catalog.Get(PostPublished)
	require.True(t, ok)
	assert.Equal(t, "Post Published", descriptor.Label)
	assert.Equal(t, "Posts", descriptor.Group)

	assert.True(t, catalog.Has(UserRoleChanged))
	assert.False(t, catalog.Has("order_refunded"))
}

func TestCatalog_Grouped(t *testing.T) {
	groups := NewCatalog(Defaults()...).Grouped()

	names := make([]string, 0, len(groups))
	for _, group := range groups {
		names = append(names, group.Name)
	}

	assert.Equal(t, []string{"Posts", "Comments", "Users", "WooCommerce", "Webhooks"}, names)
	require.Len(t, groups[2].Triggers, 2)
	assert.Equal(t, UserRegistered, groups[2].Triggers[0].Slug)
	assert.Equal(t, UserRoleChanged, groups[2].Triggers[1].Slug)
}

func TestCatalog_AddReplacesInPlace(t *testing.T) {
	catalog := NewCatalog(
		Descriptor{Slug: "a", Label: "A"},
		Descriptor{Slug: "b", Label: "B"},
	)

	catalog.Add(Descriptor{Slug: "a", Label: "A2"})

	all := catalog.All()
	require.Len(t, all, 2)
	assert.Equal(t, "A2", all[0].Label)
	assert.Equal(t, "b", all[1].Slug)
}

func TestCatalog_ValidatePayload(t *testing.T) {
	catalog := NewCatalog(Defaults()...)

	tests := []struct {
		name     string
		slug     string
		payload  map[string]any
		wantErr  error
		isSchema bool
	}{
		{name: "valid", slug: PostPublished, payload: map[string]any{"post_id": 42, "post_type": "post"}},
		{name: "extra fields allowed", slug: PostPublished, payload: map[string]any{"custom": true}},
		{name: "nil payload", slug: UserRegistered, payload: nil},
		{name: "wrong type", slug: PostPublished, payload: map[string]any{"post_id": "forty-two"}, isSchema: true},
		{name: "bad email", slug: UserRegistered, payload: map[string]any{"user_email": "nope"}, isSchema: true},
		{name: "unknown trigger", slug: "nope", payload: map[string]any{}, wantErr: ErrUnknownTrigger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := catalog.ValidatePayload(tt.slug, tt.payload)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.isSchema:
				var schemaErr *registry.SchemaError
				assert.ErrorAs(t, err, &schemaErr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}
