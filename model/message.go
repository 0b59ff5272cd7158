package model

import "time"

// Message 表示一条一对一聊天消息。消息创建后不可变，
// 会话内按 Timestamp 升序全序排列。
type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"-"`
	ReceiverID int64     `json:"-"`
	Sender     string    `json:"sender"`   // sender username
	Receiver   string    `json:"receiver"` // receiver username
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}
