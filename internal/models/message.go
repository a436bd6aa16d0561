package models

import (
	"time"
)

// Message is a directed message between two users.
type Message struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	FromUsername string    `gorm:"not null;index"`
	ToUsername   string    `gorm:"not null;index"`
	Body         string    `gorm:"not null"`
	SentAt       time.Time `gorm:"not null"`
	ReadAt       *time.Time
}

func (Message) TableName() string {
	return "messages"
}

// MessageRow is one row of a message joined with both parties' profiles.
// Column names follow the aliases of the store's join query.
type MessageRow struct {
	ID            int64
	FromUsername  string
	FromFirstName string
	FromLastName  string
	FromPhone     string
	ToUsername    string
	ToFirstName   string
	ToLastName    string
	ToPhone       string
	Body          string
	SentAt        time.Time
	ReadAt        *time.Time
}

// SentMessage is a message as seen by its sender.
type SentMessage struct {
	ID     int64       `json:"id"`
	Body   string      `json:"body"`
	SentAt time.Time   `json:"sent_at"`
	ReadAt *time.Time  `json:"read_at"`
	ToUser Counterpart `json:"to_user"`
}

// ReceivedMessage is a message as seen by its recipient.
type ReceivedMessage struct {
	ID       int64       `json:"id"`
	Body     string      `json:"body"`
	SentAt   time.Time   `json:"sent_at"`
	ReadAt   *time.Time  `json:"read_at"`
	FromUser Counterpart `json:"from_user"`
}

// MessageDetail carries both parties and is what the message-detail route returns.
type MessageDetail struct {
	ID       int64       `json:"id"`
	Body     string      `json:"body"`
	SentAt   time.Time   `json:"sent_at"`
	ReadAt   *time.Time  `json:"read_at"`
	FromUser Counterpart `json:"from_user"`
	ToUser   Counterpart `json:"to_user"`
}

// ReadReceipt is returned after marking a message read.
type ReadReceipt struct {
	ID     int64     `json:"id"`
	ReadAt time.Time `json:"read_at"`
}

func (r MessageRow) sender() Counterpart {
	return Counterpart{
		Username:  r.FromUsername,
		FirstName: r.FromFirstName,
		LastName:  r.FromLastName,
		Phone:     r.FromPhone,
	}
}

func (r MessageRow) recipient() Counterpart {
	return Counterpart{
		Username:  r.ToUsername,
		FirstName: r.ToFirstName,
		LastName:  r.ToLastName,
		Phone:     r.ToPhone,
	}
}

// ToSentMessage maps a joined row onto the sender's view.
func ToSentMessage(r MessageRow) SentMessage {
	return SentMessage{
		ID:     r.ID,
		Body:   r.Body,
		SentAt: r.SentAt,
		ReadAt: r.ReadAt,
		ToUser: r.recipient(),
	}
}

// ToReceivedMessage maps a joined row onto the recipient's view.
func ToReceivedMessage(r MessageRow) ReceivedMessage {
	return ReceivedMessage{
		ID:       r.ID,
		Body:     r.Body,
		SentAt:   r.SentAt,
		ReadAt:   r.ReadAt,
		FromUser: r.sender(),
	}
}

// ToMessageDetail maps a joined row onto the two-party view.
func ToMessageDetail(r MessageRow) MessageDetail {
	return MessageDetail{
		ID:       r.ID,
		Body:     r.Body,
		SentAt:   r.SentAt,
		ReadAt:   r.ReadAt,
		FromUser: r.sender(),
		ToUser:   r.recipient(),
	}
}
