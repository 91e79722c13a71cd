package workflow

import (
	"encoding/json"

	wf "podcast-app/internal/domain/workflow"
)

const (
	actionTransition  = "transition"
	actionSetOverride = "setOverride"
	actionValidate    = "validate"
)

// WorkflowRequest is the body of POST /podcasts/:id/workflow. Transition fields
// and override fields are used depending on Action.
type WorkflowRequest struct {
	Action string `json:"action" binding:"required"`

	To                    string  `json:"to"`
	From                  string  `json:"from"`
	RSSURL                *string `json:"rss_url"`
	SyncNow               bool    `json:"sync_now"`
	PreserveManualChanges bool    `json:"preserve_manual_changes"`

	Field string `json:"field"`
	// Raw so that "true" or 1 can be told apart from a JSON boolean.
	Value json.RawMessage `json:"value"`
}

type WorkflowResponse struct {
	Workflow             wf.State        `json:"workflow"`
	AvailableTransitions []wf.Transition `json:"availableTransitions"`
}

func newWorkflowResponse(state wf.State) WorkflowResponse {
	return WorkflowResponse{
		Workflow:             state,
		AvailableTransitions: wf.AvailableTransitions(state.Mode),
	}
}
