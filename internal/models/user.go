package models

import (
	"time"
)

// User is the stored identity record. Password holds the bcrypt digest only.
type User struct {
	Username    string    `gorm:"primaryKey;size:64"`
	Password    string    `gorm:"not null"`
	FirstName   string    `gorm:"not null"`
	LastName    string    `gorm:"not null"`
	Phone       string    `gorm:"not null"`
	JoinAt      time.Time `gorm:"not null"`
	LastLoginAt *time.Time
}

func (User) TableName() string {
	return "users"
}

// UserSummary is the row returned when listing every user.
type UserSummary struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UserDetail is the public profile of a user. It never carries the digest.
type UserDetail struct {
	Username    string     `json:"username"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       string     `json:"phone"`
	JoinAt      time.Time  `json:"join_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// Detail projects the stored record onto its public profile.
func (u *User) Detail() UserDetail {
	return UserDetail{
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		JoinAt:      u.JoinAt,
		LastLoginAt: u.LastLoginAt,
	}
}

// Counterpart is the non-secret profile of the other party of a message.
type Counterpart struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}
