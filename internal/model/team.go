package model

import "time"

const (
	SectionGimnaziu = "gimnaziu"
	SectionLiceu    = "liceu"
)

type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleMember MemberRole = "member"
)

type Team struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	School           string     `json:"school"`
	Section          string     `json:"section"`
	CoordinatorName  string     `json:"coordinator_name"`
	CoordinatorEmail string     `json:"coordinator_email"`
	CoordinatorPhone string     `json:"coordinator_phone"`
	CaptainName      string     `json:"captain_name"`
	CaptainEmail     string     `json:"captain_email"`
	CaptainDiscord   string     `json:"captain_discord"`
	Member1Name      string     `json:"member1_name"`
	Member1Email     string     `json:"member1_email"`
	Member1Discord   string     `json:"member1_discord"`
	Member2Name      string     `json:"member2_name"`
	Member2Email     string     `json:"member2_email"`
	Member2Discord   string     `json:"member2_discord"`
	Member3Name      string     `json:"member3_name"`
	Member3Email     string     `json:"member3_email"`
	Member3Discord   string     `json:"member3_discord"`
	DiplomaEmail     string     `json:"diploma_email"`
	TeamCode         string     `json:"team_code"`
	OwnerSub         string     `json:"owner_sub"`
	SolutionURL      string     `json:"solution_url"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
}

// TeamProfile is the payload a student submits when creating or updating
// a team. Mandatory fields match the registration form.
type TeamProfile struct {
	Name             string `json:"name" validate:"required"`
	School           string `json:"school" validate:"required"`
	Section          string `json:"section" validate:"required,oneof=gimnaziu liceu"`
	CoordinatorName  string `json:"coordinator_name" validate:"required"`
	CoordinatorEmail string `json:"coordinator_email" validate:"required,email"`
	CoordinatorPhone string `json:"coordinator_phone"`
	CaptainName      string `json:"captain_name" validate:"required"`
	CaptainEmail     string `json:"captain_email" validate:"required,email"`
	CaptainDiscord   string `json:"captain_discord"`
	Member1Name      string `json:"member1_name"`
	Member1Email     string `json:"member1_email"`
	Member1Discord   string `json:"member1_discord"`
	Member2Name      string `json:"member2_name"`
	Member2Email     string `json:"member2_email"`
	Member2Discord   string `json:"member2_discord"`
	Member3Name      string `json:"member3_name"`
	Member3Email     string `json:"member3_email"`
	Member3Discord   string `json:"member3_discord"`
	DiplomaEmail     string `json:"diploma_email"`
	PrivacyAccepted  bool   `json:"privacy_accepted"`
}

type TeamMember struct {
	TeamID    string     `json:"team_id"`
	UserSub   string     `json:"user_sub"`
	UserName  string     `json:"user_name"`
	UserEmail string     `json:"user_email"`
	Role      MemberRole `json:"role"`
	JoinedAt  *time.Time `json:"joined_at,omitempty"`
}

// TeamView is a team as seen by one of its members.
type TeamView struct {
	*Team
	Role MemberRole `json:"role"`
}

// TeamDetail is the admin view of a single team.
type TeamDetail struct {
	*Team
	Members []*TeamMember `json:"members"`
}
