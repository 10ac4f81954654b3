package models

import (
	"time"
)

// Notification policy values for an organization
const (
	NotifyOwner = "owner"
	NotifyAll   = "all"
)

// Member roles
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Subscription plans, lowest to highest tier
const (
	PlanStandard = "standard"
	PlanPro      = "pro"
	PlanUltra    = "ultra"
)

// Organization represents a tenant account
type Organization struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`                     // Display name
	NotifyPolicy string    `gorm:"default:owner" json:"notify_policy"`       // owner/all
	ExtraEmails  string    `json:"extra_emails"`                             // Extra notification addresses (comma separated)
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// User represents a member account scoped to one organization
type User struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	OrgID       uint       `gorm:"not null;index" json:"org_id"`         // Owning organization
	Email       string     `gorm:"uniqueIndex;not null" json:"email"`    // Login + notification address
	Password    string     `gorm:"not null" json:"-"`                    // Hashed password (excluded from JSON)
	Role        string     `gorm:"default:member" json:"role"`           // owner/member
	Plan        string     `gorm:"default:standard" json:"plan"`         // standard/pro/ultra
	TrialEndsAt *time.Time `json:"trial_ends_at"`                        // End of trial window, nil if not on trial
	Blocked     bool       `gorm:"default:false" json:"blocked"`         // Anti-abuse block
	IsActive    bool       `gorm:"default:true" json:"is_active"`        // Account status
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Setting represents system configuration
type Setting struct {
	Key   string `gorm:"primarykey" json:"key"`
	Value string `json:"value"`
}
