package models

import "time"

// User roles.
const (
	RoleStudent    = "student"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
)

// User represents a platform member. AuthID is the identity issued by the
// external auth provider and is the address notifications are delivered to.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AuthID    string    `gorm:"size:64;uniqueIndex;not null" json:"auth_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"size:32;not null;default:student" json:"role"`
	TimeZone  string    `gorm:"size:64" json:"time_zone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
