package model

import (
	"strings"
	"time"
)

// User represents a clinician or administrative account.
type User struct {
	ID           uint   `gorm:"column:id;primaryKey"`
	Username     string `gorm:"column:username;uniqueIndex;size:100;not null"`
	Email        string `gorm:"column:email;uniqueIndex;size:255;not null"`
	PasswordHash string `gorm:"column:password;size:255;not null"`

	FirstName string `gorm:"column:first_name;size:100"`
	LastName  string `gorm:"column:last_name;size:100"`

	Enabled               bool `gorm:"column:enabled;not null;default:true"`
	AccountNonExpired     bool `gorm:"column:account_non_expired;not null;default:true"`
	AccountNonLocked      bool `gorm:"column:account_non_locked;not null;default:true"`
	CredentialsNonExpired bool `gorm:"column:credentials_non_expired;not null;default:true"`
	FailedLoginAttempts   int  `gorm:"column:failed_login_attempts;default:0"`

	// ProfessionalData carries clinician metadata: specialty, license,
	// position, phone. Accounts without a specialty and license are
	// administrative, not clinicians.
	ProfessionalData JSONMap `gorm:"column:professional_data;type:jsonb"`

	// RefreshToken is the currently valid refresh token, or nil after
	// logout or a password change.
	RefreshToken *string `gorm:"column:refresh_token;size:512"`

	PhotoPath string `gorm:"column:photo_path;size:255"`

	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	LastLogin *time.Time `gorm:"column:last_login"`
}

func (User) TableName() string {
	return "users"
}

// IsActive reports whether the account may log in.
func (u User) IsActive() bool {
	return u.Enabled && u.AccountNonLocked
}

// FullName returns the display name, falling back to the username.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Specialty returns the medical specialty from the professional data.
func (u User) Specialty() string {
	return u.professionalField("specialty")
}

// LicenseNumber returns the professional license number.
func (u User) LicenseNumber() string {
	return u.professionalField("license_number")
}

// Position returns the clinician's position.
func (u User) Position() string {
	return u.professionalField("position")
}

// Phone returns the contact phone from the professional data.
func (u User) Phone() string {
	return u.professionalField("phone")
}

// IsClinician reports whether the account is a licensed clinician.
// A clinician must have both a specialty and a license number.
func (u User) IsClinician() bool {
	return u.Specialty() != "" && u.LicenseNumber() != ""
}

func (u User) professionalField(key string) string {
	if u.ProfessionalData == nil {
		return ""
	}
	if v, ok := u.ProfessionalData[key].(string); ok {
		return v
	}
	return ""
}
