package domain

import "time"

// Role attributes a conversation turn to a speaker.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in the conversation timeline. Turns are immutable
// once appended; Timestamp is assigned locally at append time so the
// timeline stays monotonic even when the service returns none.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ExchangeKind classifies the input modality that triggered an exchange.
type ExchangeKind string

const (
	ExchangeText  ExchangeKind = "text"
	ExchangeVoice ExchangeKind = "voice"
)
