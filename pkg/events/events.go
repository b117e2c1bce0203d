// Package events defines the domain events consumed by the dispatcher and the
// lifecycle events published by the workflow engine.
package events

import "time"

type EventType string

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

// Domain events produced by the CRM. Each is consumed from the topic of the same name.
const (
	LeadCreatedEvent      EventType = "lead.created"
	DealStageChangedEvent EventType = "deal.stage_changed"
	ContactUpdatedEvent   EventType = "contact.updated"
)

const (
	// Workflow authoring events.
	WorkflowCreatedEvent EventType = "workflow.created"

	// Workflow execution lifecycle events.
	WorkflowExecutionStartedEvent   EventType = "workflow.execution.started"
	WorkflowExecutionCompletedEvent EventType = "workflow.execution.completed"
	WorkflowExecutionFailedEvent    EventType = "workflow.execution.failed"

	// Outbox event consumed by the message delivery service.
	MessageSendRequestedEvent EventType = "message.send_requested"
)

// Topic returns the topic an event type is published on.
func (t EventType) Topic() string {
	return string(t)
}

type BaseEvent struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	Timestamp      time.Time `json:"timestamp"`
	OrganizationID string    `json:"organization_id"`
}

type WorkflowCreated struct {
	BaseEvent

	WorkflowID  string `json:"workflow_id"`
	TriggerType string `json:"trigger_type"`
}

func (w WorkflowCreated) GetType() EventType {
	return WorkflowCreatedEvent
}

type WorkflowExecutionStarted struct {
	BaseEvent

	WorkflowID  string         `json:"workflow_id"`
	ExecutionID string         `json:"execution_id"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (w WorkflowExecutionStarted) GetType() EventType {
	return WorkflowExecutionStartedEvent
}

type WorkflowExecutionCompleted struct {
	BaseEvent

	WorkflowID  string        `json:"workflow_id"`
	ExecutionID string        `json:"execution_id"`
	Steps       int           `json:"steps"`
	Duration    time.Duration `json:"duration"`
}

func (w WorkflowExecutionCompleted) GetType() EventType {
	return WorkflowExecutionCompletedEvent
}

type WorkflowExecutionFailed struct {
	BaseEvent

	WorkflowID  string        `json:"workflow_id"`
	ExecutionID string        `json:"execution_id"`
	Step        int           `json:"step"`
	Error       string        `json:"error"`
	Duration    time.Duration `json:"duration"`
}

func (w WorkflowExecutionFailed) GetType() EventType {
	return WorkflowExecutionFailedEvent
}

// MessageSendRequested asks the delivery service to send a message.
type MessageSendRequested struct {
	BaseEvent

	From        string   `json:"from"`
	To          []string `json:"to"`
	Subject     string   `json:"subject"`
	BodyHTML    string   `json:"body_html"`
	TrackOpens  bool     `json:"track_opens"`
	TrackClicks bool     `json:"track_clicks"`
}

func (m MessageSendRequested) GetType() EventType {
	return MessageSendRequestedEvent
}
