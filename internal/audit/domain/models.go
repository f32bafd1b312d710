package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

// AuditLog is an append-only record of a state-changing action.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ActorType  string            `gorm:"column:actor_type;type:varchar(16);not null" json:"actor_type"`
	ActorID    *string           `gorm:"column:actor_id;type:varchar(32);index:idx_audit_logs_actor" json:"actor_id,omitempty"`
	Action     string            `gorm:"column:action;type:varchar(64);not null" json:"action"`
	TargetType string            `gorm:"column:target_type;type:varchar(32);not null" json:"target_type"`
	TargetID   *string           `gorm:"column:target_id;type:varchar(32)" json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	IPAddress  *string           `gorm:"column:ip_address;type:varchar(64)" json:"ip_address,omitempty"`
	UserAgent  *string           `gorm:"column:user_agent;type:text" json:"user_agent,omitempty"`
	CreatedAt  time.Time         `gorm:"column:created_at;not null;index:idx_audit_logs_actor" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	ActorType  string
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *AuditCursor
	Limit      int
}
