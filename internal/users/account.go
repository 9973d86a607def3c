package users

import (
	"strings"
	"time"
)

// Roles an account can hold on the supply chain.
const (
	RoleProducer    = "producer"
	RoleDistributor = "distributor"
	RoleWarehouse   = "warehouse"
	RoleGovernment  = "government"
	RoleConsumer    = "consumer"
)

// Account captures a registered user: the email they log in with, their
// bcrypt-hashed password and the role they act in.
type Account struct {
	Email        string    `gorm:"column:email;primaryKey;size:320;not null"`
	PasswordHash string    `gorm:"column:password_hash;size:128;not null"`
	Role         string    `gorm:"column:role;size:32;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing user accounts.
func (Account) TableName() string {
	return "user_accounts"
}

// normalize value helper used across service implementation.
func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
