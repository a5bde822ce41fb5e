package entities

import "time"

type AuditEventType string

const (
	AuditEventReserve   AuditEventType = "reserve"
	AuditEventCheckout  AuditEventType = "checkout"
	AuditEventReturn    AuditEventType = "return"
	AuditEventUnreserve AuditEventType = "unreserve"
	AuditEventRetire    AuditEventType = "retire"
	AuditEventCatalog   AuditEventType = "catalog"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

// AuditEvent records one circulation action and its outcome.
type AuditEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"index" json:"user_id"`
	EventType   AuditEventType `gorm:"index;size:50" json:"event_type"`
	BookID      *uint          `gorm:"index" json:"book_id,omitempty"`
	Description string         `gorm:"size:500" json:"description"`
	Status      AuditStatus    `gorm:"size:20" json:"status"`
	ErrorMsg    string         `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
