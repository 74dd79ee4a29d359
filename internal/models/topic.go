package models

import "time"

// Topic proposal status values.
const (
	TopicStatusPending  = "pending"
	TopicStatusApproved = "approved"
	TopicStatusRejected = "rejected"
)

// Topic is a project proposal submitted by a student (or group) and decided by
// a supervisor. Approval creates the project aggregate.
type Topic struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	StudentID    *uint      `gorm:"index" json:"student_id"`
	GroupID      *uint      `gorm:"index" json:"group_id"`
	SupervisorID uint       `gorm:"index;not null" json:"supervisor_id"`
	ProjectType  string     `gorm:"size:32;not null;default:project" json:"project_type"`
	Status       string     `gorm:"size:32;not null;default:pending" json:"status"`
	DecisionNote string     `gorm:"type:text" json:"decision_note"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	ProjectID    *uint      `gorm:"index" json:"project_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Student      *User      `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Group        *Group     `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}
