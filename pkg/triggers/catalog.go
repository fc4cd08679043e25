// Package triggers describes the events workflows can be bound to and the payload
// each event source is expected to deliver.
package triggers

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dukex/autoflow/pkg/registry"
)

var ErrUnknownTrigger = errors.New("unknown trigger")

// Descriptor is a trigger slug with its label, group and payload JSON-schema.
type Descriptor struct {
	Slug          string         `json:"slug"`
	Label         string         `json:"label"`
	Group         string         `json:"group"`
	PayloadSchema map[string]any `json:"payload_schema"`
}

type Group struct {
	Name     string       `json:"name"`
	Triggers []Descriptor `json:"triggers"`
}

// Catalog is an ordered set of trigger descriptors. Adding an existing slug
// replaces the descriptor in place.
type Catalog struct {
	mu       sync.RWMutex
	triggers map[string]Descriptor
	order    []string
}

func NewCatalog(descriptors ...Descriptor) *Catalog {
	catalog := &Catalog{triggers: make(map[string]Descriptor)}

	for _, descriptor := range descriptors {
		catalog.Add(descriptor)
	}

	return catalog
}

func (c *Catalog) Add(descriptor Descriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.triggers[descriptor.Slug]; !exists {
		c.order = append(c.order, descriptor.Slug)
	}

	c.triggers[descriptor.Slug] = descriptor
}

func (c *Catalog) Get(slug string) (Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	descriptor, ok := c.triggers[slug]

	return descriptor, ok
}

func (c *Catalog) Has(slug string) bool {
	_, ok := c.Get(slug)

	return ok
}

func (c *Catalog) All() []Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Descriptor, 0, len(c.order))
	for _, slug := range c.order {
		out = append(out, c.triggers[slug])
	}

	return out
}

// Grouped partitions the catalog by group, in order of first appearance.
func (c *Catalog) Grouped() []Group {
	var groups []Group

	index := make(map[string]int)

	for _, descriptor := range c.All() {
		i, ok := index[descriptor.Group]
		if !ok {
			i = len(groups)
			index[descriptor.Group] = i
			groups = append(groups, Group{Name: descriptor.Group})
		}

		groups[i].Triggers = append(groups[i].Triggers, descriptor)
	}

	return groups
}

// ValidatePayload checks payload against the trigger's payload schema.
func (c *Catalog) ValidatePayload(slug string, payload map[string]any) error {
	descriptor, ok := c.Get(slug)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTrigger, slug)
	}

	if payload == nil {
		payload = map[string]any{}
	}

	if err := registry.ValidateSchema(descriptor.PayloadSchema, payload); err != nil {
		return fmt.Errorf("invalid payload for trigger %s: %w", slug, err)
	}

	return nil
}
