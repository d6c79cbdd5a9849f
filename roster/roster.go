package roster

// Roster - состав одного соревнования в порядке вступления.
type Roster struct {
	CompetitionID string
	Members       []Member
}

func (r Roster) Len() int { return len(r.Members) }

// Owner возвращает запись владельца, если она есть в составе.
func (r Roster) Owner() (Member, bool) {
	for _, m := range r.Members {
		if m.Role == RoleOwner {
			return m, true
		}
	}
	return Member{}, false
}

func (r Roster) Member(memberID string) (Member, bool) {
	for _, m := range r.Members {
		if m.ID == memberID {
			return m, true
		}
	}
	return Member{}, false
}

func (r Roster) HasUser(userID string) bool {
	for _, m := range r.Members {
		if m.User.ID == userID {
			return true
		}
	}
	return false
}

func (r Roster) userIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(r.Members))
	for _, m := range r.Members {
		ids[m.User.ID] = struct{}{}
	}
	return ids
}

func (r Roster) clone() Roster {
	members := make([]Member, len(r.Members))
	copy(members, r.Members)
	return Roster{CompetitionID: r.CompetitionID, Members: members}
}
