package model

import "strings"

const (
	FlagRegistration    = "registration"
	FlagStart           = "start"
	FlagSubjectGimnaziu = "subject_gimnaziu"
	FlagSubjectLiceu    = "subject_liceu"
	FlagAdminPassword   = "admin_password"
)

const (
	FlagValueTrue  = "TRUE"
	FlagValueFalse = "FALSE"
)

type Flag struct {
	Name  string `json:"flag"`
	Value string `json:"value"`
}

// FlagSnapshot is the configuration state fetched once per session and
// refreshed after admin mutations.
type FlagSnapshot struct {
	RegistrationOpen bool   `json:"registration_open"`
	ContestStarted   bool   `json:"contest_started"`
	SubjectGimnaziu  string `json:"subject_gimnaziu,omitempty"`
	SubjectLiceu     string `json:"subject_liceu,omitempty"`
}

// ParseFlagBool accepts the historical value spellings: rows were written
// both as the literal "TRUE" and as a boolean.
func ParseFlagBool(value string) bool {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "true", "1":
		return true
	default:
		return false
	}
}

// FormatFlagBool writes the canonical spelling.
func FormatFlagBool(v bool) string {
	if v {
		return FlagValueTrue
	}
	return FlagValueFalse
}

// SubjectFlagForSection maps a contest section to its subject-link flag.
func SubjectFlagForSection(section string) (string, bool) {
	switch section {
	case SectionGimnaziu:
		return FlagSubjectGimnaziu, true
	case SectionLiceu:
		return FlagSubjectLiceu, true
	default:
		return "", false
	}
}
