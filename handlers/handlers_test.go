package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dosada05/fair-measure/middleware"
	"github.com/Dosada05/fair-measure/models"
	"github.com/Dosada05/fair-measure/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerID       = "11111111-1111-1111-1111-111111111111"
	competitionID = "22222222-2222-2222-2222-222222222222"
	memberID      = "33333333-3333-3333-3333-333333333333"
	aliceID       = "44444444-4444-4444-4444-444444444444"
)

type stubMemberService struct {
	addErr    error
	removeErr error
	gotActor  string
	gotInput  services.AddMemberInput
}

func (s *stubMemberService) ListByCompetition(_ context.Context, id string) ([]*models.Member, error) {
	if id != competitionID {
		return nil, services.ErrCompetitionNotFound
	}
	return []*models.Member{
		{ID: memberID, CompetitionID: id, UserID: ownerID, Role: models.RoleOwner, User: &models.User{ID: ownerID, FullName: "Olga"}},
	}, nil
}

func (s *stubMemberService) ListByUser(_ context.Context, userID string) ([]*models.Member, error) {
	return []*models.Member{}, nil
}

func (s *stubMemberService) Add(_ context.Context, actorID, compID string, input services.AddMemberInput) (*models.Member, error) {
	s.gotActor, s.gotInput = actorID, input
	if s.addErr != nil {
		return nil, s.addErr
	}
	return &models.Member{ID: memberID, CompetitionID: compID, UserID: input.UserID, Role: models.RoleMember}, nil
}

func (s *stubMemberService) Remove(_ context.Context, actorID, id string) error {
	s.gotActor = actorID
	return s.removeErr
}

func (s *stubMemberService) Check(_ context.Context, compID, userID string) (*models.MembershipCheck, error) {
	role := models.RoleOwner
	if userID == ownerID {
		return &models.MembershipCheck{IsMember: true, Role: &role}, nil
	}
	return &models.MembershipCheck{}, nil
}

type stubProfileService struct {
	gotQuery string
	gotLimit int
}

func (s *stubProfileService) SearchByEmail(_ context.Context, query string, limit int) ([]*models.User, error) {
	s.gotQuery, s.gotLimit = query, limit
	return []*models.User{{ID: aliceID, Email: "alice@example.com"}}, nil
}

func (s *stubProfileService) GetByID(_ context.Context, id string) (*models.User, error) {
	return nil, services.ErrUserNotFound
}

func (s *stubProfileService) UploadAvatar(_ context.Context, userID, contentType string, file io.Reader) (*models.User, error) {
	return nil, services.ErrAvatarStorageDisabled
}

// newTestRouter собирает маршруты без JWT: текущий пользователь берется из заголовка X-Test-User.
func newTestRouter(ms services.MemberService, ps services.ProfileService) http.Handler {
	withUser := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get("X-Test-User"); id != "" {
				r = r.WithContext(middleware.WithUserID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
	mh := NewMemberHandler(ms)
	ph := NewProfileHandler(ps)

	r := chi.NewRouter()
	r.Use(withUser)
	r.Get("/competitions/{competitionID}/members", mh.ListByCompetition)
	r.Post("/competitions/{competitionID}/members", mh.Add)
	r.Delete("/members/{memberID}", mh.Remove)
	r.Get("/members/check/{competitionID}/{userID}", mh.Check)
	r.Get("/profiles", ph.Search)
	r.Get("/profiles/{userID}", ph.GetByID)
	r.Put("/profiles/me/avatar", ph.UploadAvatar)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body, user string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMemberHandler_List(t *testing.T) {
	h := newTestRouter(&stubMemberService{}, &stubProfileService{})

	rec := do(t, h, http.MethodGet, "/competitions/"+competitionID+"/members", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Members []models.Member `json:"members"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Members, 1)
	assert.Equal(t, "Olga", body.Members[0].User.FullName)

	rec = do(t, h, http.MethodGet, "/competitions/not-a-uuid/members", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/competitions/"+memberID+"/members", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMemberHandler_AddStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"created", nil, http.StatusCreated},
		{"duplicate", services.ErrMemberConflict, http.StatusConflict},
		{"not owner", services.ErrForbiddenOperation, http.StatusForbidden},
		{"bad role", services.ErrMemberRoleInvalid, http.StatusBadRequest},
		{"unknown user", services.ErrUserNotFound, http.StatusNotFound},
		{"unexpected", assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := &stubMemberService{addErr: tt.err}
			h := newTestRouter(ms, &stubProfileService{})
			rec := do(t, h, http.MethodPost, "/competitions/"+competitionID+"/members",
				`{"user_id":"`+aliceID+`","role":"member"}`, ownerID)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, ownerID, ms.gotActor)
			assert.Equal(t, aliceID, ms.gotInput.UserID)
		})
	}
}

func TestMemberHandler_AddRequiresAuthAndValidBody(t *testing.T) {
	h := newTestRouter(&stubMemberService{}, &stubProfileService{})

	rec := do(t, h, http.MethodPost, "/competitions/"+competitionID+"/members", `{"user_id":"`+aliceID+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/competitions/"+competitionID+"/members", `{"user_id":1}`, ownerID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/competitions/"+competitionID+"/members", `{"unknown":"x"}`, ownerID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMemberHandler_Remove(t *testing.T) {
	h := newTestRouter(&stubMemberService{}, &stubProfileService{})
	rec := do(t, h, http.MethodDelete, "/members/"+memberID, "", ownerID)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	h = newTestRouter(&stubMemberService{removeErr: services.ErrCannotRemoveOwner}, &stubProfileService{})
	rec = do(t, h, http.MethodDelete, "/members/"+memberID, "", ownerID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h = newTestRouter(&stubMemberService{removeErr: services.ErrMemberNotFound}, &stubProfileService{})
	rec = do(t, h, http.MethodDelete, "/members/"+memberID, "", ownerID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMemberHandler_Check(t *testing.T) {
	h := newTestRouter(&stubMemberService{}, &stubProfileService{})
	rec := do(t, h, http.MethodGet, "/members/check/"+competitionID+"/"+ownerID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"is_member":true,"role":"owner"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/members/check/"+competitionID+"/"+aliceID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"is_member":false,"role":null}`, rec.Body.String())
}

func TestProfileHandler_Search(t *testing.T) {
	ps := &stubProfileService{}
	h := newTestRouter(&stubMemberService{}, ps)

	rec := do(t, h, http.MethodGet, "/profiles?email=ali&limit=5", "", ownerID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ali", ps.gotQuery)
	assert.Equal(t, 5, ps.gotLimit)
	assert.Contains(t, rec.Body.String(), "alice@example.com")

	rec = do(t, h, http.MethodGet, "/profiles?email=ali", "", ownerID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.DefaultSearchLimit, ps.gotLimit)

	rec = do(t, h, http.MethodGet, "/profiles?email=ali&limit=abc", "", ownerID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileHandler_ErrorsMapped(t *testing.T) {
	h := newTestRouter(&stubMemberService{}, &stubProfileService{})

	rec := do(t, h, http.MethodGet, "/profiles/"+aliceID, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPut, "/profiles/me/avatar", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
