package models

import "time"

// Group is a set of co-authoring students sharing one project. Notifications
// for a group project fan out to every member.
type Group struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Members   []User    `gorm:"many2many:group_members" json:"members"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
