package domain

// StepKind discriminates the FlowStep tagged union.
type StepKind string

const (
	// StepAsk pauses the turn: required fields are missing and the caller
	// must resupply them.
	StepAsk StepKind = "ask"

	// StepConfirm pauses the turn: the caller must resubmit with the issued
	// token to proceed.
	StepConfirm StepKind = "confirm"

	// StepExecute is the only step kind that can mutate external state.
	StepExecute StepKind = "execute"

	// StepRespond carries the final user-visible result for the turn.
	StepRespond StepKind = "respond"
)

// FlowStep is the core state-machine payload. Exactly the fields for the
// step's Kind are populated.
type FlowStep struct {
	Kind StepKind `json:"kind"`

	// Ask fields
	Prompt  string   `json:"prompt,omitempty"`
	Missing []string `json:"missing,omitempty"`

	// Confirm fields
	Token string `json:"token,omitempty"`

	// Execute fields
	Action      string         `json:"action,omitempty"`
	Sensitivity Sensitivity    `json:"sensitivity,omitempty"`
	Tool        string         `json:"tool,omitempty"`
	Input       map[string]any `json:"input,omitempty"`

	// Respond fields
	Message string `json:"message,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// AskStep builds a turn-terminal ask step.
func AskStep(prompt string, missing []string) FlowStep {
	return FlowStep{Kind: StepAsk, Prompt: prompt, Missing: missing}
}

// ConfirmStep builds a turn-terminal confirm step bound to token.
func ConfirmStep(prompt, token string) FlowStep {
	return FlowStep{Kind: StepConfirm, Prompt: prompt, Token: token}
}

// ExecuteStep builds an execute step for the named action and tool.
func ExecuteStep(action string, sensitivity Sensitivity, tool string, input map[string]any) FlowStep {
	return FlowStep{Kind: StepExecute, Action: action, Sensitivity: sensitivity, Tool: tool, Input: input}
}

// RespondStep builds a respond step with an optional payload.
func RespondStep(message string, payload any) FlowStep {
	return FlowStep{Kind: StepRespond, Message: message, Payload: payload}
}

// FinalResult is the terminal outcome of a flow turn.
type FinalResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Payload any    `json:"payload,omitempty"`
}

// FlowRunResult is the append-only trace of what the runner executed or
// proposed in one turn. Final is set only when the flow reached a respond
// step or a blocked execute.
type FlowRunResult struct {
	Steps []FlowStep   `json:"steps"`
	Final *FinalResult `json:"final,omitempty"`
}

// Pending reports whether the turn stopped on an ask or confirm step and is
// waiting on the caller.
func (r FlowRunResult) Pending() bool {
	if len(r.Steps) == 0 {
		return false
	}
	switch r.Steps[len(r.Steps)-1].Kind {
	case StepAsk, StepConfirm:
		return true
	}
	return false
}
