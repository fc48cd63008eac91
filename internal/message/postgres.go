package message

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureConversation finds or creates the conversation for a participant
// pair and listing.
func (r *PostgresRepository) EnsureConversation(userA, userB string, listingID *string) (*Conversation, error) {
	if userA == userB {
		return nil, ErrNotParticipant
	}
	a, b := orderParticipants(userA, userB)

	findQuery := `
		SELECT id, listing_id, participant_a, participant_b, created_at, last_message_at
		FROM conversations
		WHERE participant_a = $1 AND participant_b = $2
		  AND listing_id IS NOT DISTINCT FROM $3
	`
	c, err := scanConversation(r.db.QueryRow(findQuery, a, b, listingColumn(listingID)))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}

	insertQuery := `
		INSERT INTO conversations (id, listing_id, participant_a, participant_b, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, listing_id, participant_a, participant_b, created_at, last_message_at
	`
	c, err = scanConversation(r.db.QueryRow(
		insertQuery, uuid.New().String(), listingColumn(listingID), a, b, time.Now().UTC(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return c, nil
}

// GetConversation retrieves a conversation by ID.
func (r *PostgresRepository) GetConversation(id string) (*Conversation, error) {
	query := `
		SELECT id, listing_id, participant_a, participant_b, created_at, last_message_at
		FROM conversations
		WHERE id = $1
	`
	c, err := scanConversation(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return c, nil
}

// ListConversations returns the user's conversations, most recently active
// first.
func (r *PostgresRepository) ListConversations(userID string) ([]Conversation, error) {
	query := `
		SELECT id, listing_id, participant_a, participant_b, created_at, last_message_at
		FROM conversations
		WHERE participant_a = $1 OR participant_b = $1
		ORDER BY COALESCE(last_message_at, created_at) DESC, id ASC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}
	return out, nil
}

// SendMessage appends a message and bumps the conversation's activity time.
func (r *PostgresRepository) SendMessage(conversationID, senderID, body string) (*Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}

	c, err := r.GetConversation(conversationID)
	if err != nil {
		return nil, err
	}
	if !c.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	m := &Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      now,
	}

	insertQuery := `
		INSERT INTO messages (id, conversation_id, sender_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(insertQuery, m.ID, m.ConversationID, m.SenderID, m.Body, m.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	bumpQuery := `UPDATE conversations SET last_message_at = $2 WHERE id = $1`
	if _, err := tx.Exec(bumpQuery, conversationID, now); err != nil {
		return nil, fmt.Errorf("failed to bump conversation activity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}
	return m, nil
}

// ListMessages returns one page of history, newest first. It fetches one row
// past the page size to decide whether a next cursor is needed.
func (r *PostgresRepository) ListMessages(conversationID string, limit int, cursorToken string) (*MessagePage, error) {
	limit = clampPageSize(limit)

	cur, err := DecodeCursor(cursorToken)
	if err != nil {
		return nil, err
	}

	if _, err := r.GetConversation(conversationID); err != nil {
		return nil, err
	}

	var (
		conditions = []string{"conversation_id = $1"}
		args       = []interface{}{conversationID}
	)
	if cur != nil {
		args = append(args, cur.CreatedAt, cur.ID)
		conditions = append(conditions, fmt.Sprintf("(created_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}
	args = append(args, limit+1)

	query := fmt.Sprintf(`
		SELECT id, conversation_id, sender_id, body, created_at, read_at
		FROM messages
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d
	`, strings.Join(conditions, " AND "), len(args))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var fetched []Message
	for rows.Next() {
		var (
			m      Message
			readAt sql.NullTime
		)
		err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.CreatedAt, &readAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if readAt.Valid {
			t := readAt.Time
			m.ReadAt = &t
		}
		fetched = append(fetched, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	page := &MessagePage{Messages: fetched}
	if len(fetched) > limit {
		page.Messages = fetched[:limit]
		last := page.Messages[limit-1]
		token, err := EncodeCursor(last.CreatedAt, last.ID)
		if err != nil {
			return nil, err
		}
		page.NextCursor = token
	}
	if page.Messages == nil {
		page.Messages = []Message{}
	}
	return page, nil
}

// MarkRead stamps every unread message addressed to userID.
func (r *PostgresRepository) MarkRead(conversationID, userID string) error {
	c, err := r.GetConversation(conversationID)
	if err != nil {
		return err
	}
	if !c.HasParticipant(userID) {
		return ErrNotParticipant
	}

	query := `
		UPDATE messages
		SET read_at = now()
		WHERE conversation_id = $1 AND sender_id != $2 AND read_at IS NULL
	`
	if _, err := r.db.Exec(query, conversationID, userID); err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}

type conversationScanner interface {
	Scan(dest ...interface{}) error
}

func scanConversation(s conversationScanner) (*Conversation, error) {
	c := &Conversation{}
	var (
		listingID sql.NullString
		lastMsg   sql.NullTime
	)
	err := s.Scan(&c.ID, &listingID, &c.ParticipantA, &c.ParticipantB, &c.CreatedAt, &lastMsg)
	if err != nil {
		return nil, err
	}
	if listingID.Valid {
		id := listingID.String
		c.ListingID = &id
	}
	if lastMsg.Valid {
		t := lastMsg.Time
		c.LastMessageAt = &t
	}
	return c, nil
}

func listingColumn(id *string) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *id, Valid: true}
}

// CountParticipants returns the number of distinct users participating in at
// least one conversation.
func (r *PostgresRepository) CountParticipants() (int, error) {
	query := `
		SELECT COUNT(*) FROM (
			SELECT participant_a AS user_id FROM conversations
			UNION
			SELECT participant_b FROM conversations
		) participants
	`

	var count int
	if err := r.db.QueryRow(query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}
