// Package registry keeps the set of actions a workflow can invoke.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/autoflow/pkg/protocol"
)

var ErrActionNotRegistered = errors.New("action not registered")

// Descriptor is the read-only view of a registered action.
type Descriptor struct {
	Slug         string         `json:"slug"`
	Label        string         `json:"label"`
	Group        string         `json:"group"`
	ConfigSchema map[string]any `json:"config_schema"`
}

// Group is a named partition of actions, as shown to operators.
type Group struct {
	Name    string            `json:"name"`
	Actions []protocol.Action `json:"-"`
}

type ActionRegistry struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	actions map[string]protocol.Action
	order   []string
}

func NewActionRegistry(log *slog.Logger) *ActionRegistry {
	return &ActionRegistry{
		logger:  log,
		actions: make(map[string]protocol.Action),
	}
}

// Add registers an action under its slug. Re-adding a slug replaces the action but
// keeps its original position.
func (r *ActionRegistry) Add(action protocol.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slug := action.Slug()
	if _, exists := r.actions[slug]; exists {
		r.logger.Warn("Replacing registered action", "action", slug)
	} else {
		r.order = append(r.order, slug)
	}

	r.actions[slug] = action
}

func (r *ActionRegistry) Get(slug string) (protocol.Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	action, ok := r.actions[slug]

	return action, ok
}

// All returns the registered actions in insertion order.
func (r *ActionRegistry) All() []protocol.Action {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions := make([]protocol.Action, 0, len(r.order))
	for _, slug := range r.order {
		actions = append(actions, r.actions[slug])
	}

	return actions
}

// Grouped partitions the actions by group. Groups appear in order of first
// appearance and keep insertion order inside.
func (r *ActionRegistry) Grouped() []Group {
	var groups []Group

	index := make(map[string]int)

	for _, action := range r.All() {
		i, ok := index[action.Group()]
		if !ok {
			i = len(groups)
			index[action.Group()] = i
			groups = append(groups, Group{Name: action.Group()})
		}

		groups[i].Actions = append(groups[i].Actions, action)
	}

	return groups
}

func (r *ActionRegistry) Descriptors() []Descriptor {
	actions := r.All()

	descriptors := make([]Descriptor, 0, len(actions))
	for _, action := range actions {
		descriptors = append(descriptors, Descriptor{
			Slug:         action.Slug(),
			Label:        action.Label(),
			Group:        action.Group(),
			ConfigSchema: action.ConfigSchema(),
		})
	}

	return descriptors
}

// ValidateConfig checks an invocation config against the action's JSON schema.
// The engine never calls it; it backs definition tooling.
func (r *ActionRegistry) ValidateConfig(slug string, config map[string]any) error {
	action, ok := r.Get(slug)
	if !ok {
		return fmt.Errorf("%w: %s", ErrActionNotRegistered, slug)
	}

	if config == nil {
		config = map[string]any{}
	}

	err := ValidateSchema(action.ConfigSchema(), config)
	if err != nil {
		return fmt.Errorf("invalid config for action %s: %w", slug, err)
	}

	return nil
}
