package entities

import "time"

// UserRole separates the two circulation roles: readers place and cancel
// reservations, librarians hand books out, take them back and manage the
// catalog.
type UserRole string

const (
	RoleReader    UserRole = "reader"
	RoleLibrarian UserRole = "librarian"
)

// User is a library account. Credentials are not stored here: identity is
// established from a provisioned personal access token, handled upstream of
// the circulation core.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:100" json:"username"`
	Email     string    `gorm:"uniqueIndex;size:255" json:"email"`
	Role      UserRole  `gorm:"size:20" json:"role"`
	Token     string    `gorm:"uniqueIndex;size:64" json:"-"` // access token, hidden from JSON
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
