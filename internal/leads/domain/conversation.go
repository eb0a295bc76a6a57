package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConversationState tracks whether a conversation is live.
type ConversationState string

const (
	ConversationActive  ConversationState = "ACTIVE"
	ConversationDormant ConversationState = "DORMANT"
	ConversationClosed  ConversationState = "CLOSED"
)

// Conversation is the 1:1 message thread with a lead.
type Conversation struct {
	ID             uuid.UUID
	LeadID         uuid.UUID
	SessionID      string
	State          ConversationState
	FollowUpCount  int
	MessageCount   int
	LastActivityAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Direction marks who sent a message.
type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

// ContentType marks the payload kind of a message.
type ContentType string

const (
	ContentText     ContentType = "TEXT"
	ContentImage    ContentType = "IMAGE"
	ContentAudio    ContentType = "AUDIO"
	ContentDocument ContentType = "DOCUMENT"
	ContentReaction ContentType = "REACTION"
)

// MessageStatus tracks outbound delivery outcome.
type MessageStatus string

const (
	MessageStatusDelivered MessageStatus = "DELIVERED"
	MessageStatusFailed    MessageStatus = "FAILED"
)

// Message is one immutable entry in a conversation. Seq is assigned by the
// repository and is monotonic per conversation.
type Message struct {
	ID               uuid.UUID
	ConversationID   uuid.UUID
	Seq              int64
	Direction        Direction
	ContentType      ContentType
	Content          string
	GatewayMessageID *string
	Status           MessageStatus
	Timestamp        time.Time
}

// Slots is the working memory extracted from the conversation. Empty fields
// mean the slot has not been captured yet.
type Slots struct {
	Name                  string   `json:"name,omitempty"`
	Email                 string   `json:"email,omitempty"`
	Solution              Solution `json:"solution,omitempty"`
	MonthlyBillAmount     float64  `json:"monthly_bill_amount,omitempty"`
	HasCompetitor         *bool    `json:"has_competitor,omitempty"`
	CompetitorName        string   `json:"competitor_name,omitempty"`
	CompetitorDiscountPct float64  `json:"competitor_discount_pct,omitempty"`
	MeetingDatetime       string   `json:"meeting_datetime,omitempty"`
	AttendeeEmails        []string `json:"attendee_emails,omitempty"`
}

// SessionTurn is one model exchange kept in the trimmed session context.
type SessionTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// AgentSession is the per-conversation model context and working memory.
type AgentSession struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Turns          []SessionTurn
	Slots          Slots
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TrimTurns keeps only the most recent maxTurns entries.
func (s *AgentSession) TrimTurns(maxTurns int) {
	if maxTurns > 0 && len(s.Turns) > maxTurns {
		s.Turns = s.Turns[len(s.Turns)-maxTurns:]
	}
}
