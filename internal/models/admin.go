package models

import "time"

// Admin represents an administrator account stored in the database.
//
// Role claims follow the admin/superAdmin/restrictedAdmin triple: every row
// here carries the admin bit by existing; the two flags add or remove tier.
// A row with neither flag set is a plain tier-less admin.
type Admin struct {
	ID string `gorm:"type:text;primaryKey"` // Generated UUID.

	Email        string `gorm:"type:text;not null;uniqueIndex"` // Unique login email.
	PasswordHash string `gorm:"type:text;not null"`             // Hashed password.
	DisplayName  string `gorm:"type:text"`                      // Optional display name.

	Active bool `gorm:"not null;default:true"` // Whether the admin can sign in.

	IsSuperAdmin      bool `gorm:"not null;default:false"` // May never be deleted via the API.
	IsRestrictedAdmin bool `gorm:"not null;default:false"` // May not create or delete other admins.

	TOTPSecret string `gorm:"type:text"` // TOTP secret when MFA is enrolled.

	// Sessions issued before this instant are rejected. Logout bumps it,
	// revoking every outstanding session for the principal.
	SessionsRevokedAt *time.Time

	CreatedAt   time.Time  `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime"` // Last update timestamp.
	LastLoginAt *time.Time // Last successful credential login.
}

// Claims returns the custom-claim map embedded in session tokens.
func (a *Admin) Claims() map[string]bool {
	claims := map[string]bool{"admin": true}
	if a.IsSuperAdmin {
		claims["superAdmin"] = true
	}
	if a.IsRestrictedAdmin {
		claims["restrictedAdmin"] = true
	}
	return claims
}
