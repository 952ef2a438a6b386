package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles
const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

type User struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	FullName string  `gorm:"not null" json:"full_name"`
	Email    string  `gorm:"uniqueIndex;not null" json:"email"`
	Password string  `gorm:"not null" json:"-"`
	Phone    string  `json:"phone,omitempty"`
	Trade    string  `gorm:"index" json:"trade,omitempty"` // electrical, plumbing, carpentry, ...
	State    string  `gorm:"size:3" json:"state,omitempty"` // NSW, VIC, QLD, ...
	ABN      *string `gorm:"size:14" json:"abn,omitempty"`

	Role        string     `gorm:"not null;default:client" json:"role"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// IsAdmin checks if the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
