// internal/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"talentbridge/internal/models"
	"talentbridge/internal/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresDB represents a PostgreSQL database connection
type PostgresDB struct {
	DB *sqlx.DB
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(connectionString string) (*PostgresDB, error) {
	db, err := sqlx.Connect("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %v", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL!")

	return &PostgresDB{DB: db}, nil
}

// Close closes the database connection
func (p *PostgresDB) Close(ctx context.Context) error {
	log.Println("Closing PostgreSQL connection...")
	return p.DB.Close()
}

// Ping verifies the connection is still alive.
func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}

// InitializeTables creates all necessary tables if they don't exist
func (p *PostgresDB) InitializeTables(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			email VARCHAR(100) UNIQUE NOT NULL,
			role VARCHAR(20) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create users table: %v", err)
	}

	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS conversations (
			id UUID PRIMARY KEY,
			job_id UUID,
			candidate_id UUID NOT NULL REFERENCES users(id),
			recruiter_id UUID NOT NULL REFERENCES users(id),
			candidate_unread INTEGER NOT NULL DEFAULT 0 CHECK (candidate_unread >= 0),
			recruiter_unread INTEGER NOT NULL DEFAULT 0 CHECK (recruiter_unread >= 0),
			status VARCHAR(30) NOT NULL DEFAULT 'active',
			last_message TEXT NOT NULL DEFAULT '',
			last_message_at TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE (job_id, candidate_id, recruiter_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create conversations table: %v", err)
	}

	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			conversation_id UUID NOT NULL REFERENCES conversations(id),
			sender_id UUID NOT NULL,
			receiver_id UUID,
			kind VARCHAR(20) NOT NULL DEFAULT 'text',
			body TEXT NOT NULL DEFAULT '',
			meta JSONB,
			status VARCHAR(10) NOT NULL DEFAULT 'sent',
			client_tag VARCHAR(64) NOT NULL DEFAULT '',
			deleted_by_candidate BOOLEAN NOT NULL DEFAULT FALSE,
			deleted_by_recruiter BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create messages table: %v", err)
	}

	_, err = p.DB.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
		ON messages (conversation_id, created_at, id)
	`)
	if err != nil {
		return fmt.Errorf("failed to create messages index: %v", err)
	}

	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY,
			recipient_scope VARCHAR(100) NOT NULL,
			title VARCHAR(200) NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			category VARCHAR(50) NOT NULL DEFAULT '',
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create notifications table: %v", err)
	}

	return nil
}

// GetUser retrieves a user by ID
func (p *PostgresDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := p.DB.GetContext(ctx, &user, `SELECT id, name, email, role, created_at FROM users WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, utils.NewUserNotFoundError(id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %v", err)
	}
	return &user, nil
}

// SaveUser inserts or updates a user record
func (p *PostgresDB) SaveUser(ctx context.Context, user *models.User) error {
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = $2, email = $3, role = $4
	`, user.ID, user.Name, user.Email, user.Role, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save user: %v", err)
	}
	return nil
}

// GetConversation retrieves a conversation by ID
func (p *PostgresDB) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := p.DB.GetContext(ctx, &conv, `SELECT * FROM conversations WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, utils.NewAppError(utils.ErrConversationNotFound, "conversation not found: "+id.String(), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %v", err)
	}
	return &conv, nil
}

// FindConversation looks up the conversation for a (job, candidate, recruiter)
// triple. Returns nil, nil when no conversation exists yet.
func (p *PostgresDB) FindConversation(ctx context.Context, jobID *uuid.UUID, candidateID, recruiterID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	var err error
	if jobID != nil {
		err = p.DB.GetContext(ctx, &conv, `
			SELECT * FROM conversations
			WHERE job_id = $1 AND candidate_id = $2 AND recruiter_id = $3
		`, *jobID, candidateID, recruiterID)
	} else {
		err = p.DB.GetContext(ctx, &conv, `
			SELECT * FROM conversations
			WHERE job_id IS NULL AND candidate_id = $1 AND recruiter_id = $2
		`, candidateID, recruiterID)
	}
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find conversation: %v", err)
	}
	return &conv, nil
}

// SaveConversation inserts a new conversation
func (p *PostgresDB) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO conversations
			(id, job_id, candidate_id, recruiter_id, candidate_unread, recruiter_unread,
			 status, last_message, last_message_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, conv.ID, conv.JobID, conv.CandidateID, conv.RecruiterID,
		conv.CandidateUnread, conv.RecruiterUnread, conv.Status,
		conv.LastMessage, conv.LastMessageAt, conv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %v", err)
	}
	return nil
}

// ListConversations returns conversations involving a user, newest activity
// first, hiding the ones the viewing role has soft-deleted.
func (p *PostgresDB) ListConversations(ctx context.Context, userID uuid.UUID, role models.Role, limit, offset int) ([]*models.Conversation, error) {
	var convs []*models.Conversation
	err := p.DB.SelectContext(ctx, &convs, `
		SELECT * FROM conversations
		WHERE (candidate_id = $1 OR recruiter_id = $1)
		  AND status != $2
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC
		LIMIT $3 OFFSET $4
	`, userID, models.DeletedStatusFor(role), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %v", err)
	}
	return convs, nil
}

// SetConversationStatus updates the lifecycle status
func (p *PostgresDB) SetConversationStatus(ctx context.Context, id uuid.UUID, status models.ConversationStatus) error {
	result, err := p.DB.ExecContext(ctx, `UPDATE conversations SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to set conversation status: %v", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return utils.NewAppError(utils.ErrConversationNotFound, "conversation not found: "+id.String(), nil)
	}
	return nil
}

// MarkConversationRead zeroes one role's unread counter and returns the new
// count. Running it twice is a no-op.
func (p *PostgresDB) MarkConversationRead(ctx context.Context, id uuid.UUID, role models.Role) (int, error) {
	column := "recruiter_unread"
	if role == models.RoleCandidate {
		column = "candidate_unread"
	}
	var remaining int
	err := p.DB.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE conversations SET %s = 0 WHERE id = $1 RETURNING %s
	`, column, column), id).Scan(&remaining)
	if err == sql.ErrNoRows {
		return 0, utils.NewAppError(utils.ErrConversationNotFound, "conversation not found: "+id.String(), nil)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to mark conversation read: %v", err)
	}
	return remaining, nil
}

// SaveMessage persists a message and, in the same transaction, updates the
// conversation snapshot and increments the recipient role's unread counter.
func (p *PostgresDB) SaveMessage(ctx context.Context, msg *models.Message) error {
	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages
			(id, conversation_id, sender_id, receiver_id, kind, body, meta,
			 status, client_tag, deleted_by_candidate, deleted_by_recruiter, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, msg.ID, msg.ConversationID, msg.SenderID, msg.ReceiverID, msg.Kind,
		msg.Body, []byte(msg.Meta), msg.Status, msg.ClientTag,
		msg.DeletedByCandidate, msg.DeletedByRecruiter, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save message: %v", err)
	}

	var conv models.Conversation
	if err := tx.GetContext(ctx, &conv, `SELECT * FROM conversations WHERE id = $1 FOR UPDATE`, msg.ConversationID); err != nil {
		return fmt.Errorf("failed to load conversation for message: %v", err)
	}

	unreadColumn := "recruiter_unread"
	if role, ok := conv.ParticipantRole(msg.SenderID); ok && role == models.RoleRecruiter {
		unreadColumn = "candidate_unread"
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE conversations
		SET last_message = $1, last_message_at = $2, %s = %s + 1
		WHERE id = $3
	`, unreadColumn, unreadColumn), msg.Body, msg.CreatedAt, msg.ConversationID)
	if err != nil {
		return fmt.Errorf("failed to update conversation snapshot: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message: %v", err)
	}
	return nil
}

// ListMessages returns one page of a conversation's messages visible to the
// viewing role, plus the conversation snapshot and total visible count.
func (p *PostgresDB) ListMessages(ctx context.Context, conversationID uuid.UUID, viewer models.Role, limit, offset int, descending bool) (*MessagePage, error) {
	conv, err := p.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	deletedColumn := "deleted_by_recruiter"
	if viewer == models.RoleCandidate {
		deletedColumn = "deleted_by_candidate"
	}
	order := "ASC"
	if descending {
		order = "DESC"
	}

	var messages []*models.Message
	err = p.DB.SelectContext(ctx, &messages, fmt.Sprintf(`
		SELECT * FROM messages
		WHERE conversation_id = $1 AND %s = FALSE
		ORDER BY created_at %s, id %s
		LIMIT $2 OFFSET $3
	`, deletedColumn, order, order), conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %v", err)
	}

	var total int
	err = p.DB.GetContext(ctx, &total, fmt.Sprintf(`
		SELECT COUNT(*) FROM messages WHERE conversation_id = $1 AND %s = FALSE
	`, deletedColumn), conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %v", err)
	}

	return &MessagePage{Messages: messages, Conversation: conv, Total: total}, nil
}

// SoftDeleteMessage flags a message deleted for one role and returns the
// updated record.
func (p *PostgresDB) SoftDeleteMessage(ctx context.Context, messageID uuid.UUID, role models.Role) (*models.Message, error) {
	column := "deleted_by_recruiter"
	if role == models.RoleCandidate {
		column = "deleted_by_candidate"
	}
	result, err := p.DB.ExecContext(ctx, fmt.Sprintf(`
		UPDATE messages SET %s = TRUE WHERE id = $1
	`, column), messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete message: %v", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, utils.NewAppError(utils.ErrMessageNotFound, "message not found: "+messageID.String(), nil)
	}

	var msg models.Message
	if err := p.DB.GetContext(ctx, &msg, `SELECT * FROM messages WHERE id = $1`, messageID); err != nil {
		return nil, fmt.Errorf("failed to reload message: %v", err)
	}
	return &msg, nil
}

// SaveNotification inserts a notification
func (p *PostgresDB) SaveNotification(ctx context.Context, n *models.Notification) error {
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_scope, title, content, category, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.ID, n.RecipientScope, n.Title, n.Content, n.Category, n.IsRead, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save notification: %v", err)
	}
	return nil
}

// ListNotifications returns notifications addressed to any of the given
// scopes, newest first.
func (p *PostgresDB) ListNotifications(ctx context.Context, scopes []string, limit, offset int) ([]*models.Notification, error) {
	query, args, err := sqlx.In(`
		SELECT * FROM notifications WHERE recipient_scope IN (?)
		ORDER BY created_at DESC
	`, scopes)
	if err != nil {
		return nil, fmt.Errorf("failed to build notification query: %v", err)
	}
	query = p.DB.Rebind(query) + fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	var notifications []*models.Notification
	if err := p.DB.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %v", err)
	}
	return notifications, nil
}

// MarkNotificationRead flips the read flag
func (p *PostgresDB) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	result, err := p.DB.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %v", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return utils.NewAppError(utils.ErrNotFound, "notification not found: "+id.String(), nil)
	}
	return nil
}
