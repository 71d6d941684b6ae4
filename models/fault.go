package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Severity levels for a fault
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Fault status values
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusResolved   = "resolved"
)

// Coordinates holds the geographic position of a fault
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location describes where a fault was reported
type Location struct {
	Address     string      `gorm:"not null" json:"address"`
	City        string      `gorm:"not null" json:"city"`
	Coordinates Coordinates `gorm:"embedded;embeddedPrefix:coord_" json:"coordinates"`
}

// Fault represents a reported power-line incident
type Fault struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	Location    Location       `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	Severity    string         `gorm:"not null;index" json:"severity"` // low, medium, high
	Description string         `gorm:"type:text;not null" json:"description"`
	OTP         string         `gorm:"not null;size:6" json:"otp,omitempty"` // shared secret, shown only while pending
	ReportedAt  time.Time      `gorm:"not null;index" json:"reportedAt"`     // canonical sort key, newest first
	Status      string         `gorm:"not null;default:'pending'" json:"status"` // pending, in-progress, resolved
	AssignedTo  *string        `gorm:"size:36;index" json:"assignedTo,omitempty"`
	PhotoS3Key  *string        `json:"photo_s3_key,omitempty"`
	PhotoURL    *string        `gorm:"-" json:"photo_url,omitempty"` // computed field, presigned URL for photo
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Fault model
func (Fault) TableName() string {
	return "faults"
}

// BeforeCreate assigns the fault identifier before it is persisted
func (f *Fault) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// Sanitize blanks the OTP once the fault has left the pending state.
// The OTP is a one-time secret and must not appear in responses afterwards.
func (f *Fault) Sanitize() {
	if f.Status != StatusPending {
		f.OTP = ""
	}
}

// IsValidSeverity reports whether s is one of the recognized severity levels
func IsValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// IsValidStatus reports whether s is one of the recognized fault statuses
func IsValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// GenerateOTP produces a 6-digit numeric one-time password, uniformly
// sampled from [100000, 999999]. Collisions between in-flight OTPs are
// accepted as negligible at expected scale.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
