package domain

import "strings"

// Role is the account type of a user
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleTranslator Role = "translator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// TranslatorType is the contract type of a translator
type TranslatorType string

const (
	TranslatorProfessional TranslatorType = "professional"
	TranslatorRWS          TranslatorType = "rwstranslator"
	TranslatorVolunteer    TranslatorType = "volunteer"
)

// Translator certification levels as stored in user profiles
const (
	LevelCertified       = "Certified"
	LevelCertifiedLaw    = "Certified with specialisation in law"
	LevelCertifiedHealth = "Certified with specialisation in health care"
	LevelLayman          = "Layman"
	LevelReadCourses     = "Read Translation courses"
)

// User is an account known to the user directory
type User struct {
	ID     int64  `db:"id" json:"id"`
	Email  string `db:"email" json:"email"`
	Name   string `db:"name" json:"name"`
	Mobile string `db:"mobile" json:"mobile"`
	Role   Role   `db:"role" json:"role"`
	Active bool   `db:"active" json:"active"`
}

// Is reports whether the user has the given role
func (u *User) Is(role Role) bool {
	return u != nil && u.Role == role
}

// IsAdmin covers both admin roles
func (u *User) IsAdmin() bool {
	return u.Is(RoleAdmin) || u.Is(RoleSuperAdmin)
}

// UserProfile is the read-only metadata owned by user management
type UserProfile struct {
	UserID             int64          `db:"user_id" json:"user_id"`
	TranslatorType     TranslatorType `db:"translator_type" json:"translator_type"`
	TranslatorLevel    string         `db:"translator_level" json:"translator_level"`
	Gender             Gender         `db:"gender" json:"gender"`
	Languages          []int          `db:"-" json:"languages"`
	City               string         `db:"city" json:"city"`
	Address            string         `db:"address" json:"address"`
	Instructions       string         `db:"instructions" json:"instructions"`
	ConsumerType       string         `db:"consumer_type" json:"consumer_type"`
	CustomerType       string         `db:"customer_type" json:"customer_type"`
	NotGetEmergency    bool           `db:"not_get_emergency" json:"not_get_emergency"`
	NotGetNighttime    bool           `db:"not_get_nighttime" json:"not_get_nighttime"`
	NotGetNotification bool           `db:"not_get_notification" json:"not_get_notification"`
}

// SpeaksLanguage reports whether the language id is in the profile's set
func (p *UserProfile) SpeaksLanguage(id int) bool {
	for _, l := range p.Languages {
		if l == id {
			return true
		}
	}
	return false
}

// SameTown compares cities ignoring case and surrounding whitespace
func SameTown(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

// Candidate is a translator considered by matching
type Candidate struct {
	User    User
	Profile UserProfile
}

// EmailAddress returns the address a job's customer should be written to
func EmailAddress(job *Job, owner *User) string {
	if job != nil && job.UserEmail != "" {
		return job.UserEmail
	}
	return owner.Email
}
