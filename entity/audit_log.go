package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AuditAction represents the type of mutation recorded in the audit trail
type AuditAction string

const (
	ActionCreate    AuditAction = "create"
	ActionUpdate    AuditAction = "update"
	ActionDelete    AuditAction = "delete"
	ActionArchive   AuditAction = "archive"
	ActionUnarchive AuditAction = "unarchive"
	ActionEnable    AuditAction = "enable"
	ActionDisable   AuditAction = "disable"
)

// AuditEntity names the resource kind an audit entry refers to
type AuditEntity string

const (
	EntityProject     AuditEntity = "project"
	EntityEnvironment AuditEntity = "environment"
	EntityFlag        AuditEntity = "flag"
	EntityFlagState   AuditEntity = "flag_state"
	EntitySegment     AuditEntity = "segment"
)

// AuditPayload is an arbitrary JSON document describing the change
type AuditPayload map[string]any

func (p AuditPayload) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit payload: %w", err)
	}
	return string(data), nil
}

func (p *AuditPayload) Scan(src any) error {
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, p)
	case string:
		return json.Unmarshal([]byte(data), p)
	case nil:
		*p = nil
		return nil
	default:
		return fmt.Errorf("unsupported audit payload column type %T", src)
	}
}

// AuditLog is an immutable, append-only record of a mutating operation
type AuditLog struct {
	ID        int64        `json:"id" db:"id"`
	Action    AuditAction  `json:"action" db:"action"`
	Entity    AuditEntity  `json:"entity" db:"entity"`
	EntityID  int64        `json:"entity_id" db:"entity_id"`
	Actor     string       `json:"actor" db:"actor"`
	Payload   AuditPayload `json:"payload,omitempty" db:"payload"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// NewAuditLog creates a new audit log entry
func NewAuditLog(entity AuditEntity, entityID int64, action AuditAction, actor string, payload AuditPayload) *AuditLog {
	return &AuditLog{
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Actor:     actor,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}
