package domain

import "time"

// Channel is the delivery mode of a push envelope
type Channel string

const (
	ChannelPush        Channel = "push"
	ChannelDelayedPush Channel = "delayedPush"
	ChannelSMS         Channel = "sms"
)

// Notification types carried in push payloads
const (
	NotificationSuitableJob        = "suitable_job"
	NotificationJobAccepted        = "job_accepted"
	NotificationJobCancelled       = "job_cancelled"
	NotificationSessionStartRemind = "session_start_remind"
)

// Recipient identifies a push target
type Recipient struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

// Envelope is one outbound push message; it is never persisted
type Envelope struct {
	Recipients []Recipient       `json:"recipients"`
	JobID      int64             `json:"job_id"`
	Payload    map[string]any    `json:"payload"`
	Contents   map[string]string `json:"contents"`
	Title      string            `json:"title"`
	Sound      Sound             `json:"sound"`
	Channel    Channel           `json:"channel"`
	SendAfter  *time.Time        `json:"send_after,omitempty"`
}

// Sound selects per-platform notification sounds
type Sound struct {
	Android string `json:"android"`
	IOS     string `json:"ios"`
}

// Email is one outbound templated email
type Email struct {
	To       string         `json:"to"`
	Name     string         `json:"name"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}

// SMS is one outbound text message
type SMS struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message"`
}

// Event names published to the EventSink
const (
	EventJobWasCreated  = "JobWasCreated"
	EventJobWasCanceled = "JobWasCanceled"
	EventSessionEnded   = "SessionEnded"
)

// Event is a domain event
type Event struct {
	Name    string         `json:"name"`
	JobID   int64          `json:"job_id"`
	Payload map[string]any `json:"payload"`
	At      time.Time      `json:"at"`
}
