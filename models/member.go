package models

import "time"

type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleMember MemberRole = "member"
)

func (r MemberRole) Valid() bool {
	return r == RoleOwner || r == RoleMember
}

// Member - запись участника соревнования. Одна запись на пару (competition_id, user_id).
type Member struct {
	ID            string     `json:"id" db:"id"`
	CompetitionID string     `json:"competition_id" db:"competition_id"`
	UserID        string     `json:"user_id" db:"user_id"`
	Role          MemberRole `json:"role" db:"role"`
	JoinedAt      time.Time  `json:"joined_at" db:"joined_at"`

	User *User `json:"user,omitempty" db:"-"`
}

// MembershipCheck - ответ на проверку членства пользователя.
type MembershipCheck struct {
	IsMember bool        `json:"is_member"`
	Role     *MemberRole `json:"role"`
}
