package entity

import (
	"errors"
	"time"
)

var ErrSequenceNotFound = errors.New("sequência não encontrada")

type EventType string

const (
	EventLeadCapture       EventType = "lead_capture"
	EventStatusChange      EventType = "status_change"
	EventCartAbandonment   EventType = "cart_abandonment"
	EventPurchaseCompleted EventType = "purchase_completed"
)

func (t EventType) Valid() bool {
	switch t {
	case EventLeadCapture, EventStatusChange, EventCartAbandonment, EventPurchaseCompleted:
		return true
	}
	return false
}

type EventStatus string

const (
	EventPending   EventStatus = "pending"
	EventRunning   EventStatus = "running"
	EventCompleted EventStatus = "completed"
	EventError     EventStatus = "error"
)

type AutomationEvent struct {
	EventID    string         `json:"event_id"`
	EventType  EventType      `json:"event_type"`
	LeadID     string         `json:"lead_id"`
	LeadEmail  string         `json:"lead_email"`
	LeadName   string         `json:"lead_name"`
	Timestamp  time.Time      `json:"timestamp"`
	Data       map[string]any `json:"data"`
	SequenceID string         `json:"sequence_id,omitempty"`
	Status     EventStatus    `json:"status"`
}

type StepType string

const (
	StepSendEmail      StepType = "send_email"
	StepSendWhatsApp   StepType = "send_whatsapp"
	StepTrackAnalytics StepType = "track_analytics"
	StepUpdateCRM      StepType = "update_crm"
	StepDelay          StepType = "delay"
)

type Step struct {
	Type         StepType       `json:"type"`
	Config       map[string]any `json:"config"`
	DelayMinutes int            `json:"delay_minutes,omitempty"`
}

type AutomationSequence struct {
	SequenceID   string    `json:"sequence_id"`
	Name         string    `json:"name"`
	TriggerEvent EventType `json:"trigger_event"`
	Steps        []Step    `json:"steps"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type InstanceStatus string

const (
	InstancePending   InstanceStatus = "pending"
	InstanceRunning   InstanceStatus = "running"
	InstanceCompleted InstanceStatus = "completed"
	InstanceError     InstanceStatus = "error"
)

func (s InstanceStatus) Terminal() bool {
	return s == InstanceCompleted || s == InstanceError
}

// SequenceInstance é uma execução de uma sequência para um evento.
// NextRunAt é o próximo momento em que o scheduler pode avançá-la.
type SequenceInstance struct {
	InstanceID     string          `json:"instance_id"`
	SequenceID     string          `json:"sequence_id"`
	Event          AutomationEvent `json:"event"`
	StepsCompleted int             `json:"steps_completed"`
	StepsTotal     int             `json:"steps_total"`
	Status         InstanceStatus  `json:"status"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	NextRunAt      *time.Time      `json:"next_run_at,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Due: instância não terminal cujo next_run_at já passou.
func (i *SequenceInstance) Due(now time.Time) bool {
	if i.Status.Terminal() {
		return false
	}
	return i.NextRunAt == nil || !i.NextRunAt.After(now)
}

type AutomationLogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Action     string         `json:"action"`
	EventID    string         `json:"event_id"`
	SequenceID string         `json:"sequence_id,omitempty"`
	LeadEmail  string         `json:"lead_email"`
	Config     map[string]any `json:"config,omitempty"`
}
