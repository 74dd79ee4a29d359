package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types form a closed enum used for client-side categorization
// only; the dispatcher never branches on them.
const (
	NotificationTypeSubmission   = "submission"
	NotificationTypeResubmission = "resubmission"
	NotificationTypeApproval     = "approval"
	NotificationTypeComment      = "comment"
	NotificationTypeMention      = "mention"
	NotificationTypeReminder     = "reminder"
	NotificationTypeGeneral      = "general"
	NotificationTypeFinePaid     = "fine_paid"
)

// NotificationTypes lists every accepted notification type.
var NotificationTypes = []string{
	NotificationTypeSubmission,
	NotificationTypeResubmission,
	NotificationTypeApproval,
	NotificationTypeComment,
	NotificationTypeMention,
	NotificationTypeReminder,
	NotificationTypeGeneral,
	NotificationTypeFinePaid,
}

// Notification is an in-app message targeted at a user by auth identity.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;index" json:"user_id"`
	ProjectID uint      `gorm:"index" json:"project_id"`
	Type      string    `gorm:"size:32;not null" json:"type"`
	Message   string    `gorm:"type:text" json:"message"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectMessage is a discussion entry scoped to one project.
type ProjectMessage struct {
	ID        uint                        `gorm:"primaryKey" json:"id"`
	ProjectID uint                        `gorm:"index;not null" json:"project_id"`
	SenderID  string                      `gorm:"size:64;index;not null" json:"sender_id"`
	Body      string                      `gorm:"type:text;not null" json:"body"`
	Mentions  datatypes.JSONSlice[string] `json:"mentions"`
	CreatedAt time.Time                   `json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`
}
