package directory

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Dosada05/fair-measure/models"
	"github.com/Dosada05/fair-measure/roster"
	"github.com/Dosada05/fair-measure/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMembers struct {
	list      []*models.Member
	listErr   error
	addErr    error
	removeErr error
	gotActor  string
	gotInput  services.AddMemberInput
}

func (s *stubMembers) ListByCompetition(ctx context.Context, competitionID string) ([]*models.Member, error) {
	return s.list, s.listErr
}

func (s *stubMembers) ListByUser(ctx context.Context, userID string) ([]*models.Member, error) {
	return nil, nil
}

func (s *stubMembers) Add(ctx context.Context, actorID, competitionID string, input services.AddMemberInput) (*models.Member, error) {
	s.gotActor = actorID
	s.gotInput = input
	if s.addErr != nil {
		return nil, s.addErr
	}
	return &models.Member{
		ID: "m2", CompetitionID: competitionID, UserID: input.UserID, Role: input.Role,
		JoinedAt: time.Now(),
	}, nil
}

func (s *stubMembers) Remove(ctx context.Context, actorID, memberID string) error {
	s.gotActor = actorID
	return s.removeErr
}

func (s *stubMembers) Check(ctx context.Context, competitionID, userID string) (*models.MembershipCheck, error) {
	return &models.MembershipCheck{}, nil
}

type stubProfiles struct {
	users    []*models.User
	err      error
	gotLimit int
}

func (s *stubProfiles) SearchByEmail(ctx context.Context, query string, limit int) ([]*models.User, error) {
	s.gotLimit = limit
	return s.users, s.err
}

func (s *stubProfiles) GetByID(ctx context.Context, userID string) (*models.User, error) {
	return nil, services.ErrUserNotFound
}

func (s *stubProfiles) UploadAvatar(ctx context.Context, userID, contentType string, file io.Reader) (*models.User, error) {
	return nil, services.ErrAvatarStorageDisabled
}

func TestLocalDirectory_ConvertsModels(t *testing.T) {
	avatar := "https://cdn.example.com/a.png"
	members := &stubMembers{list: []*models.Member{
		{ID: "m1", CompetitionID: "C1", UserID: "u1", Role: models.RoleOwner,
			User: &models.User{ID: "u1", FullName: "Olga", Email: "olga@x.com", AvatarURL: &avatar}},
		nil,
		{ID: "m3", CompetitionID: "C1", UserID: "u3", Role: models.RoleMember},
	}}
	profiles := &stubProfiles{users: []*models.User{{ID: "u2", Email: "anna@x.com"}}}
	d := NewLocalDirectory(members, profiles, "u1")
	ctx := context.Background()

	list, err := d.ListMembers(ctx, "C1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, roster.RoleOwner, list[0].Role)
	assert.Equal(t, avatar, list[0].User.AvatarURL)
	assert.Equal(t, "u3", list[1].User.ID, "user id falls back to the member row")

	users, err := d.SearchUsers(ctx, "ann", 5)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "anna@x.com", users[0].Name)
	assert.Equal(t, 5, profiles.gotLimit)
}

func TestLocalDirectory_MutationsActAsActor(t *testing.T) {
	members := &stubMembers{}
	d := NewLocalDirectory(members, &stubProfiles{}, "owner-1")
	ctx := context.Background()

	m, err := d.AddMember(ctx, "C1", "u2", roster.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", members.gotActor)
	assert.Equal(t, models.RoleMember, members.gotInput.Role)
	assert.Equal(t, "u2", m.User.ID)

	members.gotActor = ""
	require.NoError(t, d.RemoveMember(ctx, "m2"))
	assert.Equal(t, "owner-1", members.gotActor)
}

func TestMapServiceError(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{services.ErrCompetitionNotFound, roster.ErrNotFoundFailure},
		{services.ErrMemberNotFound, roster.ErrNotFoundFailure},
		{services.ErrUserNotFound, roster.ErrNotFoundFailure},
		{services.ErrMemberConflict, roster.ErrValidationFailure},
		{services.ErrCannotRemoveOwner, roster.ErrValidationFailure},
		{services.ErrForbiddenOperation, roster.ErrValidationFailure},
		{services.ErrMemberRoleInvalid, roster.ErrValidationFailure},
		{errors.New("connection reset"), roster.ErrNetworkFailure},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			got := mapServiceError(tc.err)
			assert.ErrorIs(t, got, tc.want)
			assert.ErrorIs(t, got, tc.err)
		})
	}
}

func TestLocalDirectory_ErrorsReachGate(t *testing.T) {
	members := &stubMembers{
		list: []*models.Member{
			{ID: "m1", CompetitionID: "C1", UserID: "u1", Role: models.RoleOwner},
		},
		addErr: services.ErrMemberConflict,
	}
	d := NewLocalDirectory(members, &stubProfiles{}, "u1")
	store := roster.NewStore(d, nil)
	gate := roster.NewMutationGate(d, store, nil)
	_, err := store.Load(context.Background(), "C1")
	require.NoError(t, err)

	_, err = gate.AddMember(context.Background(), "C1", "u2")
	assert.ErrorIs(t, err, roster.ErrValidationFailure)
	assert.False(t, gate.Pending("C1"))
}
