package models

// EntityKind names a host content type whose metadata actions may update.
type EntityKind string

const (
	EntityPost EntityKind = "post"
	EntityUser EntityKind = "user"
)
