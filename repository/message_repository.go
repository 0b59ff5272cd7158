package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"resona/model"
)

// MessageRepository defines the interface for chat message persistence.
// 消息一经写入不可变；会话按 created_at 升序构成全序。
type MessageRepository interface {
	// CreateMessage persists a message with the server clock as its
	// timestamp and returns the stored row.
	CreateMessage(ctx context.Context, senderID, receiverID int64, content string) (*model.Message, error)

	// GetConversation returns all messages exchanged between two users,
	// ordered by timestamp ascending.
	GetConversation(ctx context.Context, userID, peerID int64) ([]*model.Message, error)

	// GetRecentPeers returns the distinct users the given user has
	// exchanged messages with.
	GetRecentPeers(ctx context.Context, userID int64) ([]*model.User, error)
}

// mysqlMessageRepository implements MessageRepository for MySQL.
type mysqlMessageRepository struct {
	db *sql.DB
}

// NewMySQLMessageRepository creates a new mysqlMessageRepository.
func NewMySQLMessageRepository(db *sql.DB) MessageRepository {
	return &mysqlMessageRepository{db: db}
}

// CreateMessage persists a message and returns it with usernames resolved.
func (r *mysqlMessageRepository) CreateMessage(ctx context.Context, senderID, receiverID int64, content string) (*model.Message, error) {
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO messages (sender_id, receiver_id, content, created_at) VALUES (?, ?, ?, ?)",
		senderID, receiverID, content, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID for message: %w", err)
	}

	msg := &model.Message{
		ID:         id,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Timestamp:  now,
	}

	// 补充用户名，供投递 payload 使用
	err = r.db.QueryRowContext(ctx, "SELECT username FROM users WHERE id = ?", senderID).Scan(&msg.Sender)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sender username: %w", err)
	}
	err = r.db.QueryRowContext(ctx, "SELECT username FROM users WHERE id = ?", receiverID).Scan(&msg.Receiver)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve receiver username: %w", err)
	}

	return msg, nil
}

// GetConversation returns the full ordered history between two users.
func (r *mysqlMessageRepository) GetConversation(ctx context.Context, userID, peerID int64) ([]*model.Message, error) {
	query := `
		SELECT m.id, m.sender_id, m.receiver_id, su.username, ru.username, m.content, m.created_at
		FROM messages m
		JOIN users su ON su.id = m.sender_id
		JOIN users ru ON ru.id = m.receiver_id
		WHERE (m.sender_id = ? AND m.receiver_id = ?) OR (m.sender_id = ? AND m.receiver_id = ?)
		ORDER BY m.created_at ASC, m.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, peerID, peerID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	defer rows.Close()

	messages := []*model.Message{}
	for rows.Next() {
		msg := &model.Message{}
		err := rows.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Sender, &msg.Receiver, &msg.Content, &msg.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// GetRecentPeers returns the distinct users this user has chatted with.
func (r *mysqlMessageRepository) GetRecentPeers(ctx context.Context, userID int64) ([]*model.User, error) {
	query := `
		SELECT DISTINCT u.id, u.username, u.email, u.created_at, u.updated_at
		FROM users u
		JOIN messages m ON (m.sender_id = u.id AND m.receiver_id = ?)
		                OR (m.receiver_id = u.id AND m.sender_id = ?)
		WHERE u.id != ?
		ORDER BY u.username
	`
	rows, err := r.db.QueryContext(ctx, query, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent peers: %w", err)
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		user := &model.User{}
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan peer row: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
