package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/fair-measure/models"
	"github.com/Dosada05/fair-measure/realtime"
	"github.com/Dosada05/fair-measure/repositories"
	"github.com/Dosada05/fair-measure/storage"
	"github.com/google/uuid"
)

// store - общее in-memory состояние для фейковых репозиториев.
type store struct {
	mu           sync.Mutex
	users        map[string]*models.User
	competitions map[string]*models.Competition
	members      map[string]*models.Member
	clock        time.Time
}

func newStore() *store {
	return &store{
		users:        map[string]*models.User{},
		competitions: map[string]*models.Competition{},
		members:      map[string]*models.Member{},
		clock:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *store) addUser(fullName, email string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{ID: uuid.NewString(), FullName: fullName, Email: email, CreatedAt: s.tick()}
	s.users[u.ID] = u
	return u
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

type fakeUserRepo struct{ s *store }

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repositories.ErrUserEmailConflict
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = r.s.tick()
	r.s.users[user.ID] = copyUser(user)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) SearchByEmail(_ context.Context, fragment string, limit int) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.User, 0)
	for _, u := range r.s.users {
		if strings.Contains(strings.ToLower(u.Email), strings.ToLower(fragment)) {
			out = append(out, copyUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateAvatarKey(_ context.Context, id string, key *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.AvatarKey = key
	return nil
}

type fakeCompetitionRepo struct {
	s         *store
	createErr error
}

func (r *fakeCompetitionRepo) Create(_ context.Context, _ repositories.SQLExecutor, c *models.Competition) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[c.OwnerID]; !ok {
		return repositories.ErrCompetitionOwnerInvalid
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = r.s.tick()
	cp := *c
	r.s.competitions[c.ID] = &cp
	return nil
}

func (r *fakeCompetitionRepo) GetByID(_ context.Context, id string) (*models.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.competitions[id]
	if !ok {
		return nil, repositories.ErrCompetitionNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCompetitionRepo) List(_ context.Context, filter models.CompetitionFilter, userID string) ([]*models.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Competition, 0)
	for _, c := range r.s.competitions {
		switch filter {
		case models.FilterOwned:
			if c.OwnerID != userID {
				continue
			}
		case models.FilterMember:
			found := false
			for _, m := range r.s.members {
				if m.CompetitionID == c.ID && m.UserID == userID && m.Role != models.RoleOwner {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type fakeMemberRepo struct{ s *store }

func (r *fakeMemberRepo) Create(_ context.Context, _ repositories.SQLExecutor, m *models.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[m.UserID]; !ok {
		return repositories.ErrMemberUserInvalid
	}
	if _, ok := r.s.competitions[m.CompetitionID]; !ok {
		return repositories.ErrMemberCompetitionInvalid
	}
	for _, existing := range r.s.members {
		if existing.CompetitionID != m.CompetitionID {
			continue
		}
		if existing.UserID == m.UserID {
			return repositories.ErrMemberConflict
		}
		if existing.Role == models.RoleOwner && m.Role == models.RoleOwner {
			return repositories.ErrMemberOwnerConflict
		}
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.JoinedAt = r.s.tick()
	cp := *m
	cp.User = nil
	r.s.members[m.ID] = &cp
	return nil
}

func (r *fakeMemberRepo) withUser(m *models.Member) *models.Member {
	cp := *m
	if u, ok := r.s.users[m.UserID]; ok {
		cp.User = copyUser(u)
	}
	return &cp
}

func (r *fakeMemberRepo) GetByID(_ context.Context, id string) (*models.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[id]
	if !ok {
		return nil, repositories.ErrMemberNotFound
	}
	return r.withUser(m), nil
}

func (r *fakeMemberRepo) FindByCompetitionAndUser(_ context.Context, competitionID, userID string) (*models.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.members {
		if m.CompetitionID == competitionID && m.UserID == userID {
			return r.withUser(m), nil
		}
	}
	return nil, repositories.ErrMemberNotFound
}

func (r *fakeMemberRepo) ListByCompetition(_ context.Context, competitionID string) ([]*models.Member, error) {
	return r.filter(func(m *models.Member) bool { return m.CompetitionID == competitionID }), nil
}

func (r *fakeMemberRepo) ListByUser(_ context.Context, userID string) ([]*models.Member, error) {
	return r.filter(func(m *models.Member) bool { return m.UserID == userID }), nil
}

func (r *fakeMemberRepo) filter(keep func(*models.Member) bool) []*models.Member {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Member, 0)
	for _, m := range r.s.members {
		if keep(m) {
			out = append(out, r.withUser(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out
}

func (r *fakeMemberRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.members[id]; !ok {
		return repositories.ErrMemberNotFound
	}
	delete(r.s.members, id)
	return nil
}

func passthroughTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []realtime.MembershipEvent
}

func (n *recordingNotifier) PublishMembershipChange(event realtime.MembershipEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

type fakeUploader struct {
	uploaded map[string]string
	deleted  []string
	failWith error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploaded: map[string]string{}}
}

func (u *fakeUploader) Upload(_ context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	if u.failWith != nil {
		return nil, u.failWith
	}
	if _, err := io.ReadAll(reader); err != nil {
		return nil, err
	}
	u.uploaded[key] = contentType
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

type fakeSearchCache struct {
	entries map[string][]*models.User
	getErr  error
	sets    int
}

func newFakeSearchCache() *fakeSearchCache {
	return &fakeSearchCache{entries: map[string][]*models.User{}}
}

func cacheKey(query string, limit int) string {
	return query + "|" + strconv.Itoa(limit)
}

func (c *fakeSearchCache) Get(_ context.Context, query string, limit int) ([]*models.User, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	users, ok := c.entries[cacheKey(query, limit)]
	return users, ok, nil
}

func (c *fakeSearchCache) Set(_ context.Context, query string, limit int, users []*models.User) error {
	c.sets++
	c.entries[cacheKey(query, limit)] = users
	return nil
}

var errBoom = errors.New("boom")
