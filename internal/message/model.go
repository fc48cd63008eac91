// Package message provides models and repositories for buyer/seller
// conversations and their messages, with cursor-based message pagination.
package message

import "time"

// Conversation is a two-party thread, optionally anchored to a listing.
// ParticipantA and ParticipantB are stored in lexicographic order so the
// same pair of users always resolves to the same conversation.
type Conversation struct {
	ID            string     `json:"id"`
	ListingID     *string    `json:"listing_id,omitempty"`
	ParticipantA  string     `json:"participant_a"`
	ParticipantB  string     `json:"participant_b"`
	CreatedAt     time.Time  `json:"created_at"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// Message is a single message within a conversation. ReadAt is set when the
// recipient marks the conversation read.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	Body           string     `json:"body"`
	CreatedAt      time.Time  `json:"created_at"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// OtherParticipant returns the participant that is not userID, or "" when
// userID is not a participant.
func (c *Conversation) OtherParticipant(userID string) string {
	switch userID {
	case c.ParticipantA:
		return c.ParticipantB
	case c.ParticipantB:
		return c.ParticipantA
	}
	return ""
}

// orderParticipants returns the pair in lexicographic order.
func orderParticipants(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
