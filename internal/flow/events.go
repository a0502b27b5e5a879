// Package flow implements the assessment conversation state machine.
package flow

// EventKind distinguishes the three inbound event shapes the transport
// layer can deliver.
type EventKind string

const (
	// EventCommand is an explicit command such as "start".
	EventCommand EventKind = "command"
	// EventChoice is a button selection carrying a choice ID.
	EventChoice EventKind = "choice"
	// EventText is free-form text; the flow treats it as navigation noise.
	EventText EventKind = "text"
)

// Event is one inbound user event.
type Event struct {
	Kind    EventKind `json:"kind"`
	Payload string    `json:"payload"`
}

// Command payloads.
const (
	CommandStart = "start"
)

// Choice IDs rendered as buttons and echoed back by the transport.
const (
	ChoiceStartAssessment = "start_assessment"
	ChoiceViewResults     = "view_results"
	ChoiceResources       = "resources"
	ChoiceSelfCare        = "self_care"
	ChoiceMenu            = "menu"
	ChoiceExit            = "exit"

	// answerPrefix prefixes the four answer choice IDs: answer_0..answer_3.
	answerPrefix = "answer_"
)

// Option is a selectable button: a human label plus the opaque choice ID
// the transport must send back when it is picked.
type Option struct {
	Label    string `json:"label"`
	ChoiceID string `json:"choice_id"`
}

// Action is the outbound reply to one event: message text, the buttons to
// render, and whether the session ended with this reply.
type Action struct {
	Text       string   `json:"text"`
	Options    []Option `json:"options,omitempty"`
	EndSession bool     `json:"-"`
}
