package entity

type EventType string

const (
	EventProgress EventType = "CACHE_PROGRESS"
	EventComplete EventType = "CACHE_COMPLETE"
	EventError    EventType = "CACHE_ERROR"
)

// ProgressEvent is broadcast to every subscribed page while precaching.
type ProgressEvent struct {
	Type     EventType `json:"type"`
	Message  string    `json:"message"`
	Progress *int      `json:"progress,omitempty"`
}

func NewProgressEvent(progress int, message string) ProgressEvent {
	return ProgressEvent{
		Type:     EventProgress,
		Message:  message,
		Progress: &progress,
	}
}

func NewCompleteEvent(message string) ProgressEvent {
	return ProgressEvent{Type: EventComplete, Message: message}
}

func NewErrorEvent(message string) ProgressEvent {
	return ProgressEvent{Type: EventError, Message: message}
}
