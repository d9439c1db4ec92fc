// Package workflow folds decoded execution events into the state of a
// workflow run.
package workflow

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/pablasso/apiflow/internal/stream"
)

// Kind names an event on the wire.
type Kind string

const (
	KindPlanCreated      Kind = "plan_created"
	KindStepStarted      Kind = "step_started"
	KindAPICallCompleted Kind = "api_call_completed"
	KindDataExtracted    Kind = "data_extracted"
	KindError            Kind = "error"
	KindEnd              Kind = "end"
)

// ErrInvalidPayload is returned when a known event carries data of the wrong shape.
var ErrInvalidPayload = errors.New("invalid event payload")

// Event is one of the concrete event types in this package.
type Event interface {
	Kind() Kind
	isEvent()
}

// PlannedAction is one entry of a plan as announced by the server.
type PlannedAction struct {
	// ID is an optional correlation identifier issued by the planner.
	ID          string `json:"id,omitempty"`
	Description string `json:"description"`
	ActionType  string `json:"action_type"`
}

// StepRef identifies the step an event refers to.
type StepRef struct {
	Title string `json:"step_title"`
	ID    string `json:"step_id,omitempty"`
}

// PlanCreated announces the plan for the run.
type PlanCreated struct {
	Steps []PlannedAction `json:"steps"`
}

// StepStarted reports that a step began executing.
type StepStarted struct {
	StepRef
}

// APICallCompleted reports the request and response of a finished step.
type APICallCompleted struct {
	StepRef
	RequestDetails  json.RawMessage `json:"request_details"`
	ResponseDetails json.RawMessage `json:"response_details"`
}

// DataExtracted carries data pulled out of a step's response.
type DataExtracted struct {
	StepRef
	ExtractedData json.RawMessage `json:"extracted_data"`
}

// RunError is a fatal error reported by the service.
type RunError struct {
	Detail string `json:"detail"`
}

// RunEnd marks the end of the run.
type RunEnd struct {
	Message string `json:"message,omitempty"`
}

// Unknown is any event this client does not recognise.
type Unknown struct {
	Name string
	Raw  json.RawMessage
}

func (PlanCreated) Kind() Kind      { return KindPlanCreated }
func (StepStarted) Kind() Kind      { return KindStepStarted }
func (APICallCompleted) Kind() Kind { return KindAPICallCompleted }
func (DataExtracted) Kind() Kind    { return KindDataExtracted }
func (RunError) Kind() Kind         { return KindError }
func (RunEnd) Kind() Kind           { return KindEnd }
func (u Unknown) Kind() Kind        { return Kind(u.Name) }

func (PlanCreated) isEvent()      {}
func (StepStarted) isEvent()      {}
func (APICallCompleted) isEvent() {}
func (DataExtracted) isEvent()    {}
func (RunError) isEvent()         {}
func (RunEnd) isEvent()           {}
func (Unknown) isEvent()          {}

// defaultErrorDetail is used when an error event carries no detail.
const defaultErrorDetail = "workflow failed"

// ParseEvent converts a decoded stream message into a typed event.
func ParseEvent(msg stream.Message) (Event, error) {
	data := msg.Data
	if len(data) == 0 || gjson.ParseBytes(data).Type == gjson.Null {
		data = json.RawMessage("{}")
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("%w: %s data is not an object", ErrInvalidPayload, msg.Event)
	}

	switch Kind(msg.Event) {
	case KindPlanCreated:
		if !gjson.GetBytes(data, "steps").IsArray() {
			return nil, fmt.Errorf("%w: plan_created without steps", ErrInvalidPayload)
		}
		var ev PlanCreated
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return ev, nil

	case KindStepStarted:
		var ev StepStarted
		if err := unmarshalStepEvent(msg.Event, data, &ev, &ev.StepRef); err != nil {
			return nil, err
		}
		return ev, nil

	case KindAPICallCompleted:
		var ev APICallCompleted
		if err := unmarshalStepEvent(msg.Event, data, &ev, &ev.StepRef); err != nil {
			return nil, err
		}
		return ev, nil

	case KindDataExtracted:
		var ev DataExtracted
		if err := unmarshalStepEvent(msg.Event, data, &ev, &ev.StepRef); err != nil {
			return nil, err
		}
		return ev, nil

	case KindError:
		detail := gjson.GetBytes(data, "detail").String()
		if detail == "" {
			detail = defaultErrorDetail
		}
		return RunError{Detail: detail}, nil

	case KindEnd:
		return RunEnd{Message: gjson.GetBytes(data, "message").String()}, nil
	}

	return Unknown{Name: msg.Event, Raw: msg.Data}, nil
}

func unmarshalStepEvent(name string, data json.RawMessage, dst any, ref *StepRef) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if ref.Title == "" && ref.ID == "" {
		return fmt.Errorf("%w: %s without step_title", ErrInvalidPayload, name)
	}
	return nil
}
