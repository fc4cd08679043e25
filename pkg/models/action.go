package models

import "encoding/json"

// ActionInvocation is one entry of a workflow's ordered action list.
type ActionInvocation struct {
	Type   string         `json:"type"   validate:"required"`
	Config map[string]any `json:"config"`
}

// ActionResult is the immutable outcome of a single action execution.
type ActionResult struct {
	success bool
	message string
	data    map[string]any
}

// Success builds a successful result.
func Success(message string, data map[string]any) ActionResult {
	return ActionResult{success: true, message: message, data: copyData(data)}
}

// Failure builds a business-level failure result.
func Failure(message string, data map[string]any) ActionResult {
	return ActionResult{success: false, message: message, data: copyData(data)}
}

func (r ActionResult) IsSuccess() bool {
	return r.success
}

func (r ActionResult) Message() string {
	return r.message
}

// Data returns a copy of the result data, so callers cannot mutate the result.
func (r ActionResult) Data() map[string]any {
	return copyData(r.data)
}

func (r ActionResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"success": r.success,
		"message": r.message,
		"data":    r.Data(),
	})
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}

	return out
}
