package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Logic combines the results of a condition group.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

const (
	DefaultConditionType = "string"
	DefaultOperator      = "equals"
)

var ErrInvalidConditionNode = errors.New("condition node must be a JSON object")

// ConditionGroup is a boolean tree of rules. An empty group matches everything.
type ConditionGroup struct {
	Logic Logic           `json:"logic"`
	Rules []ConditionNode `json:"rules"`
}

// Rule compares the payload value found at Field with Value using a typed operator.
type Rule struct {
	Field    string `json:"field"`
	Type     string `json:"type"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// ConditionNode is a tagged union: exactly one of Rule or Group is set.
type ConditionNode struct {
	Rule  *Rule
	Group *ConditionGroup
}

func RuleNode(rule Rule) ConditionNode {
	return ConditionNode{Rule: &rule}
}

func GroupNode(group ConditionGroup) ConditionNode {
	return ConditionNode{Group: &group}
}

func (n ConditionNode) IsGroup() bool {
	return n.Group != nil
}

// UnmarshalJSON decides once, at load time, whether the object is a nested group
// (it carries both "logic" and "rules") or a leaf rule.
func (n *ConditionNode) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage

	err := json.Unmarshal(data, &raw)
	if err != nil || raw == nil {
		return ErrInvalidConditionNode
	}

	if present(raw, "logic") && present(raw, "rules") {
		var group ConditionGroup

		err = json.Unmarshal(data, &group)
		if err != nil {
			return fmt.Errorf("invalid condition group: %w", err)
		}

		n.Group = &group
		n.Rule = nil

		return nil
	}

	rule, err := decodeRule(raw)
	if err != nil {
		return err
	}

	n.Rule = &rule
	n.Group = nil

	return nil
}

// present reports whether key is set to something other than null.
func present(raw map[string]json.RawMessage, key string) bool {
	value, ok := raw[key]

	return ok && !bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}

func (n ConditionNode) MarshalJSON() ([]byte, error) {
	if n.Group != nil {
		return json.Marshal(n.Group)
	}

	if n.Rule != nil {
		return json.Marshal(n.Rule)
	}

	return []byte("null"), nil
}

// UnmarshalJSON normalizes the logic keyword to upper case.
func (g *ConditionGroup) UnmarshalJSON(data []byte) error {
	type alias ConditionGroup

	var aux alias

	err := json.Unmarshal(data, &aux)
	if err != nil {
		return err
	}

	aux.Logic = Logic(strings.ToUpper(strings.TrimSpace(string(aux.Logic))))
	*g = ConditionGroup(aux)

	return nil
}

func decodeRule(raw map[string]json.RawMessage) (Rule, error) {
	rule := Rule{Type: DefaultConditionType, Operator: DefaultOperator}

	for key, target := range map[string]*string{
		"field":    &rule.Field,
		"type":     &rule.Type,
		"operator": &rule.Operator,
		"value":    &rule.Value,
	} {
		value, ok := raw[key]
		if !ok {
			continue
		}

		text, err := scalarText(value)
		if err != nil {
			return Rule{}, fmt.Errorf("invalid rule %q: %w", key, err)
		}

		if text == "" && (key == "type" || key == "operator") {
			continue
		}

		*target = text
	}

	return rule, nil
}

// scalarText returns the text form of a JSON scalar; numbers keep their literal form.
func scalarText(value json.RawMessage) (string, error) {
	decoder := json.NewDecoder(bytes.NewReader(value))
	decoder.UseNumber()

	var v any

	err := decoder.Decode(&v)
	if err != nil {
		return "", err
	}

	switch typed := v.(type) {
	case nil:
		return "", nil
	case string:
		return typed, nil
	case json.Number:
		return typed.String(), nil
	case bool:
		if typed {
			return "1", nil
		}

		return "", nil
	default:
		return "", fmt.Errorf("expected scalar, got %T", v)
	}
}

// ParseConditionGroup decodes a stored condition group; empty input yields an empty group.
func ParseConditionGroup(data []byte) (ConditionGroup, error) {
	var group ConditionGroup

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return group, nil
	}

	err := json.Unmarshal(trimmed, &group)
	if err != nil {
		return ConditionGroup{}, fmt.Errorf("failed to decode conditions: %w", err)
	}

	return group, nil
}

// String renders a rule for log messages.
func (r Rule) String() string {
	return r.Field + " " + r.Operator + " " + strconv.Quote(r.Value) + " (" + r.Type + ")"
}
