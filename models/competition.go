package models

import "time"

// CompetitionType соответствует ENUM competition_type в БД.
type CompetitionType string

const (
	CompetitionLeague     CompetitionType = "league"
	CompetitionTournament CompetitionType = "tournament"
	CompetitionKnockout   CompetitionType = "knockout"
	CompetitionOther      CompetitionType = "other"
)

func (t CompetitionType) Valid() bool {
	switch t {
	case CompetitionLeague, CompetitionTournament, CompetitionKnockout, CompetitionOther:
		return true
	}
	return false
}

// Competition представляет соревнование. После создания не изменяется.
type Competition struct {
	ID        string          `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Type      CompetitionType `json:"type" db:"type"`
	IsPrivate bool            `json:"is_private" db:"is_private"`
	OwnerID   string          `json:"owner_id" db:"owner_id"`
	Author    string          `json:"author" db:"author"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`

	MemberCount int   `json:"member_count" db:"-"`
	Owner       *User `json:"owner,omitempty" db:"-"`
}

// CompetitionFilter задает фильтр списка соревнований (вкладки All / My / Member Of).
type CompetitionFilter string

const (
	FilterAll    CompetitionFilter = "all"
	FilterOwned  CompetitionFilter = "owned"
	FilterMember CompetitionFilter = "member"
)
