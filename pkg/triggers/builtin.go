package triggers

const (
	PostPublished         = "post_published"
	CommentPosted         = "comment_posted"
	UserRegistered        = "user_registered"
	UserRoleChanged       = "user_role_changed"
	WooOrderStatusChanged = "woo_order_status_changed"
	InboundWebhook        = "inbound_webhook"
)

// Defaults returns the built-in trigger descriptors.
func Defaults() []Descriptor {
	return []Descriptor{
		{
			Slug:  PostPublished,
			Label: "Post Published",
			Group: "Posts",
			PayloadSchema: object(map[string]any{
				"post_id":    integer(),
				"post_type":  str(),
				"post_title": str(),
				"author_id":  integer(),
				"old_status": str(),
			}),
		},
		{
			Slug:  CommentPosted,
			Label: "Comment Posted",
			Group: "Comments",
			PayloadSchema: object(map[string]any{
				"comment_id":     integer(),
				"post_id":        integer(),
				"author_name":    str(),
				"author_email":   email(),
				"comment_status": str(),
			}),
		},
		{
			Slug:  UserRegistered,
			Label: "User Registered",
			Group: "Users",
			PayloadSchema: object(map[string]any{
				"user_id":    integer(),
				"user_email": email(),
				"user_login": str(),
				"roles":      stringList(),
			}),
		},
		{
			Slug:  UserRoleChanged,
			Label: "User Role Changed",
			Group: "Users",
			PayloadSchema: object(map[string]any{
				"user_id":    integer(),
				"user_email": email(),
				"new_role":   str(),
				"old_roles":  stringList(),
			}),
		},
		{
			Slug:  WooOrderStatusChanged,
			Label: "Order Status Changed",
			Group: "WooCommerce",
			PayloadSchema: object(map[string]any{
				"order_id":      integer(),
				"old_status":    str(),
				"new_status":    str(),
				"customer_id":   integer(),
				"order_total":   str(),
				"billing_email": email(),
			}),
		},
		{
			Slug:  InboundWebhook,
			Label: "Inbound Webhook",
			Group: "Webhooks",
			PayloadSchema: object(map[string]any{
				"webhook_token": str(),
				"payload":       map[string]any{"type": "object"},
			}),
		},
	}
}

func object(properties map[string]any) map[string]any {
	return map[string]any{"type": "object", "properties": properties}
}

func integer() map[string]any {
	return map[string]any{"type": "integer"}
}

func str() map[string]any {
	return map[string]any{"type": "string"}
}

func email() map[string]any {
	return map[string]any{"type": "string", "format": "email"}
}

func stringList() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}
