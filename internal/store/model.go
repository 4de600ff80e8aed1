package store

import "time"

// Outcome is the result of one authentication attempt reported by the device.
type Outcome string

const (
	OutcomeGranted    Outcome = "GRANTED"
	OutcomeDenied     Outcome = "DENIED"
	OutcomeRegistered Outcome = "REGISTERED"
)

// Valid reports whether o is one of the enumerated outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeGranted, OutcomeDenied, OutcomeRegistered:
		return true
	default:
		return false
	}
}

// Role is the web permission level of a profile.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// MaxNoteLength bounds the free-text note of an access log entry.
const MaxNoteLength = 100

// HardwareUser is the device-level identity created at fingerprint registration.
type HardwareUser struct {
	ID        int       `json:"id"`
	FingerID  int       `json:"fingerId"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewHardwareUser carries the fields needed to create a HardwareUser.
type NewHardwareUser struct {
	ID             int
	FingerID       int
	CredentialHash []byte
}

// Profile is the web identity bound 1:1 to a HardwareUser.
type Profile struct {
	ID        int       `json:"id"`
	UserID    int       `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Mobile    *string   `json:"mobile"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Credentials pairs a profile with its stored password hash. It is never
// serialized.
type Credentials struct {
	Profile      Profile
	PasswordHash []byte
}

// NewProfile carries the fields needed to create a Profile.
type NewProfile struct {
	UserID       int
	Name         string
	Email        string
	Mobile       *string
	PasswordHash []byte
	Role         Role
}

// ProfileUpdate holds the administrator-editable fields. Nil fields are left
// untouched; ClearMobile removes the stored mobile number.
type ProfileUpdate struct {
	Name        *string
	Email       *string
	Mobile      *string
	ClearMobile bool
	Role        *Role
}

// UserWithProfile is the left-outer-join of a HardwareUser and its optional Profile.
type UserWithProfile struct {
	HardwareUser
	Profile *Profile `json:"profile"`
}

// AccessLogEntry is one immutable authentication attempt.
type AccessLogEntry struct {
	ID        int64     `json:"id"`
	UserID    *int      `json:"userId"`
	Outcome   Outcome   `json:"result"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewAccessLog carries the fields needed to append an access log entry.
type NewAccessLog struct {
	UserID  int
	Outcome Outcome
	Note    string
}

// AccessLogView is an access log entry enriched with the owning profile's
// display fields. REST responses and realtime pushes share this shape.
type AccessLogView struct {
	AccessLogEntry
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Mobile *string `json:"mobile"`
}

// SystemStats is recomputed on demand from users and access logs.
type SystemStats struct {
	TotalUsers         int64 `json:"totalUsers"`
	TotalAccessLogs    int64 `json:"totalAccessLogs"`
	AccessGrantedToday int64 `json:"accessGrantedToday"`
	AccessDeniedToday  int64 `json:"accessDeniedToday"`
	HardwareConnected  bool  `json:"hardwareConnected"`
}
