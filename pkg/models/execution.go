package models

// StepStatus describes what happened to one action invocation.
type StepStatus string

const (
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
	StepFaulted   StepStatus = "faulted"
	StepSkipped   StepStatus = "skipped"
)

// StepReport records the outcome of one action invocation of an execution.
type StepReport struct {
	Index  int           `json:"index"`
	Action string        `json:"action"`
	Status StepStatus    `json:"status"`
	Result *ActionResult `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// SkipReason explains why an execution ran no action at all.
type SkipReason string

const (
	SkipWorkflowNotFound SkipReason = "workflow_not_found"
	SkipWorkflowDisabled SkipReason = "workflow_disabled"
	SkipConditionsNotMet SkipReason = "conditions_not_met"
)

// ExecutionReport summarizes one ExecuteWorkflow call.
type ExecutionReport struct {
	WorkflowID    string       `json:"workflow_id"`
	Trigger       string       `json:"trigger"`
	ConditionsMet bool         `json:"conditions_met"`
	Skipped       SkipReason   `json:"skipped,omitempty"`
	Halted        bool         `json:"halted"`
	Steps         []StepReport `json:"steps"`
}

// Executed counts the invocations that actually reached an action.
func (r *ExecutionReport) Executed() int {
	count := 0

	for _, step := range r.Steps {
		if step.Status != StepSkipped {
			count++
		}
	}

	return count
}
