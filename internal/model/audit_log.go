package model

import "time"

// AuditLog is one append-only record of a security-relevant action.
type AuditLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    *uint     `json:"user_id,omitempty" gorm:"index"`
	Username  string    `json:"username" gorm:"size:191;not null;index"`
	Action    string    `json:"action" gorm:"size:64;not null;index"`
	Resource  *string   `json:"resource,omitempty" gorm:"size:255"`
	Details   *string   `json:"details,omitempty" gorm:"type:text"`
	IPAddress *string   `json:"ip_address,omitempty" gorm:"size:64"`
	UserAgent *string   `json:"user_agent,omitempty" gorm:"size:512"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index"`

	// Relations
	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`
}
