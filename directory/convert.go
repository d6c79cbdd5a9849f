// Package directory binds roster.Directory to the member directory backend, either over
// its REST API or directly over the service layer.
package directory

import (
	"github.com/Dosada05/fair-measure/models"
	"github.com/Dosada05/fair-measure/roster"
)

func toRosterUser(u *models.User) roster.User {
	if u == nil {
		return roster.User{}
	}
	out := roster.User{ID: u.ID, Name: u.DisplayName(), Email: u.Email}
	if u.AvatarURL != nil {
		out.AvatarURL = *u.AvatarURL
	}
	return out
}

func toRosterMember(m *models.Member) roster.Member {
	out := roster.Member{
		ID:            m.ID,
		CompetitionID: m.CompetitionID,
		Role:          roster.Role(m.Role),
		JoinedAt:      m.JoinedAt,
		User:          toRosterUser(m.User),
	}
	if out.User.ID == "" {
		out.User.ID = m.UserID
	}
	return out
}

func toRosterMembers(list []*models.Member) []roster.Member {
	out := make([]roster.Member, 0, len(list))
	for _, m := range list {
		if m != nil {
			out = append(out, toRosterMember(m))
		}
	}
	return out
}

func toRosterUsers(list []*models.User) []roster.User {
	out := make([]roster.User, 0, len(list))
	for _, u := range list {
		if u != nil {
			out = append(out, toRosterUser(u))
		}
	}
	return out
}
