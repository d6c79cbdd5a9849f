package roster

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// fakeDirectory - in-memory каталог, повторяющий ограничения бэкенда.
type fakeDirectory struct {
	mu      sync.Mutex
	users   []User
	members map[string][]Member
	nextID  int
	clock   time.Time

	listErr   error
	searchErr error
	addErr    error
	removeErr error

	// searchResult подменяет выдачу поиска, если задан.
	searchResult func(query string) []User
	// searchGate блокирует поиск до закрытия канала, если задан.
	searchGate map[string]chan struct{}
	// addGate блокирует AddMember до закрытия канала.
	addGate chan struct{}
	// listStall: ListMembers после снимка передает сюда канал и ждет его закрытия.
	listStall chan chan struct{}
	// failListAfter: ListMembers начинает падать после N успешных вызовов (0 - выключено).
	failListAfter int

	listCalls   atomic.Int32
	searchCalls atomic.Int32
	addCalls    atomic.Int32
	removeCalls atomic.Int32
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		members: map[string][]Member{},
		clock:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (d *fakeDirectory) addUser(id, name, email string) User {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := User{ID: id, Name: name, Email: email}
	d.users = append(d.users, u)
	return u
}

func (d *fakeDirectory) seedMember(competitionID, memberID, userID string, role Role) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock = d.clock.Add(time.Minute)
	d.members[competitionID] = append(d.members[competitionID], Member{
		ID: memberID, CompetitionID: competitionID, Role: role, JoinedAt: d.clock, User: d.userLocked(userID),
	})
}

func (d *fakeDirectory) userLocked(id string) User {
	for _, u := range d.users {
		if u.ID == id {
			return u
		}
	}
	return User{ID: id}
}

func (d *fakeDirectory) ListMembers(ctx context.Context, competitionID string) ([]Member, error) {
	out, stall, err := d.snapshotMembers(competitionID)
	if stall != nil {
		release := make(chan struct{})
		stall <- release
		<-release
	}
	return out, err
}

func (d *fakeDirectory) snapshotMembers(competitionID string) ([]Member, chan chan struct{}, error) {
	n := d.listCalls.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listErr != nil {
		return nil, d.listStall, d.listErr
	}
	if d.failListAfter > 0 && int(n) > d.failListAfter {
		return nil, d.listStall, fmt.Errorf("%w: connection reset", ErrNetworkFailure)
	}
	out := make([]Member, len(d.members[competitionID]))
	copy(out, d.members[competitionID])
	return out, d.listStall, nil
}

func (d *fakeDirectory) SearchUsers(ctx context.Context, email string, limit int) ([]User, error) {
	d.searchCalls.Add(1)
	d.mu.Lock()
	gate := d.searchGate[email]
	d.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.searchErr != nil {
		return nil, d.searchErr
	}
	if d.searchResult != nil {
		return d.searchResult(email), nil
	}
	out := make([]User, 0)
	for _, u := range d.users {
		if strings.Contains(strings.ToLower(u.Email), strings.ToLower(email)) {
			out = append(out, u)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (d *fakeDirectory) AddMember(ctx context.Context, competitionID, userID string, role Role) (Member, error) {
	d.addCalls.Add(1)
	if d.addGate != nil {
		<-d.addGate
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.addErr != nil {
		return Member{}, d.addErr
	}
	if role != RoleMember {
		return Member{}, fmt.Errorf("%w: role must be member", ErrValidationFailure)
	}
	for _, m := range d.members[competitionID] {
		if m.User.ID == userID {
			return Member{}, fmt.Errorf("%w: duplicate membership", ErrValidationFailure)
		}
	}
	d.nextID++
	d.clock = d.clock.Add(time.Minute)
	m := Member{
		ID:            fmt.Sprintf("new-%d", d.nextID),
		CompetitionID: competitionID,
		Role:          role,
		JoinedAt:      d.clock,
		User:          d.userLocked(userID),
	}
	d.members[competitionID] = append(d.members[competitionID], m)
	return m, nil
}

func (d *fakeDirectory) RemoveMember(ctx context.Context, memberID string) error {
	d.removeCalls.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.removeErr != nil {
		return d.removeErr
	}
	for cid, list := range d.members {
		for i, m := range list {
			if m.ID != memberID {
				continue
			}
			if m.Role == RoleOwner {
				return fmt.Errorf("%w: cannot remove owner", ErrValidationFailure)
			}
			d.members[cid] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: member %s", ErrNotFoundFailure, memberID)
}

func alwaysConfirm(context.Context, Member) bool { return true }

func neverConfirm(context.Context, Member) bool { return false }
