package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dosada05/fair-measure/roster"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T) (*httptest.Server, *http.Request) {
	t.Helper()
	var last http.Request
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			last = *req
			next.ServeHTTP(w, req)
		})
	})
	writeJSON := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	r.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"token": "tok-1",
			"user":  map[string]string{"id": "u1", "email": "olga@x.com", "full_name": "Olga"},
		})
	})
	r.Get("/competitions/{id}/members", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "id") != "C1" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "competition not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"members": []map[string]interface{}{
			{"id": "m1", "competition_id": "C1", "user_id": "u1", "role": "owner", "joined_at": "2024-05-01T12:00:00Z",
				"user": map[string]interface{}{"id": "u1", "full_name": "Olga", "email": "olga@x.com", "avatar_url": "https://cdn/x.png"}},
		}})
	})
	r.Get("/profiles", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"users": []map[string]string{
			{"id": "u2", "email": "anna@x.com"},
		}})
	})
	r.Post("/competitions/{id}/members", func(w http.ResponseWriter, req *http.Request) {
		var in struct {
			UserID string `json:"user_id"`
			Role   string `json:"role"`
		}
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		switch in.UserID {
		case "u1":
			writeJSON(w, http.StatusConflict, map[string]string{"error": "user is already a member of this competition"})
		case "u403":
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "operation not allowed for the current user"})
		case "u500":
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
		default:
			writeJSON(w, http.StatusCreated, map[string]interface{}{"member": map[string]interface{}{
				"id": "m2", "competition_id": "C1", "user_id": in.UserID, "role": in.Role,
				"user": map[string]string{"id": in.UserID, "email": "anna@x.com"},
			}})
		}
	})
	r.Delete("/members/{id}", func(w http.ResponseWriter, req *http.Request) {
		switch chi.URLParam(req, "id") {
		case "m1":
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot remove the competition owner"})
		case "m404":
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "member not found"})
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestHTTPDirectory_ListMembers(t *testing.T) {
	srv, _ := newAPI(t)
	d, err := NewHTTPDirectory(srv.URL, "", nil)
	require.NoError(t, err)

	members, err := d.ListMembers(context.Background(), "C1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	m := members[0]
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, roster.RoleOwner, m.Role)
	assert.Equal(t, "Olga", m.User.Name)
	assert.Equal(t, "https://cdn/x.png", m.User.AvatarURL)
	assert.False(t, m.JoinedAt.IsZero())

	_, err = d.ListMembers(context.Background(), "C404")
	assert.ErrorIs(t, err, roster.ErrNotFoundFailure)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "competition not found", statusErr.Message)
}

func TestHTTPDirectory_SearchSendsQueryAndToken(t *testing.T) {
	srv, last := newAPI(t)
	d, err := NewHTTPDirectory(srv.URL+"/", "tok-1", nil)
	require.NoError(t, err)

	users, err := d.SearchUsers(context.Background(), "ann", 5)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u2", users[0].ID)
	assert.Equal(t, "anna@x.com", users[0].Name)

	assert.Equal(t, "ann", last.URL.Query().Get("email"))
	assert.Equal(t, "5", last.URL.Query().Get("limit"))
	assert.Equal(t, "Bearer tok-1", last.Header.Get("Authorization"))
}

func TestHTTPDirectory_AddMemberStatusMapping(t *testing.T) {
	srv, _ := newAPI(t)
	d, err := NewHTTPDirectory(srv.URL, "tok-1", nil)
	require.NoError(t, err)
	ctx := context.Background()

	m, err := d.AddMember(ctx, "C1", "u2", roster.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, "m2", m.ID)
	assert.Equal(t, roster.RoleMember, m.Role)

	_, err = d.AddMember(ctx, "C1", "u1", roster.RoleMember)
	assert.ErrorIs(t, err, roster.ErrValidationFailure)
	_, err = d.AddMember(ctx, "C1", "u403", roster.RoleMember)
	assert.ErrorIs(t, err, roster.ErrValidationFailure)
	_, err = d.AddMember(ctx, "C1", "u500", roster.RoleMember)
	assert.ErrorIs(t, err, roster.ErrNetworkFailure)
}

func TestHTTPDirectory_RemoveMember(t *testing.T) {
	srv, _ := newAPI(t)
	d, err := NewHTTPDirectory(srv.URL, "tok-1", nil)
	require.NoError(t, err)
	ctx := context.Background()

	assert.NoError(t, d.RemoveMember(ctx, "m2"))
	assert.ErrorIs(t, d.RemoveMember(ctx, "m1"), roster.ErrValidationFailure)
	assert.ErrorIs(t, d.RemoveMember(ctx, "m404"), roster.ErrNotFoundFailure)
}

func TestHTTPDirectory_TransportFailure(t *testing.T) {
	srv, _ := newAPI(t)
	url := srv.URL
	srv.Close()

	d, err := NewHTTPDirectory(url, "", nil)
	require.NoError(t, err)
	_, err = d.ListMembers(context.Background(), "C1")
	assert.ErrorIs(t, err, roster.ErrNetworkFailure)
}

func TestHTTPDirectory_Login(t *testing.T) {
	srv, _ := newAPI(t)
	d, err := NewHTTPDirectory(srv.URL, "", nil)
	require.NoError(t, err)

	session, err := d.Login(context.Background(), "olga@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", session.Token)
	assert.Equal(t, "u1", session.UserID)
}

func TestHTTPDirectory_WebSocketURL(t *testing.T) {
	d, err := NewHTTPDirectory("https://api.example.com/v1", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "wss://api.example.com/v1/ws/competitions/C1", d.WebSocketURL("C1"))

	_, err = NewHTTPDirectory("not a url", "", nil)
	assert.Error(t, err)
}

// Сессия roster поверх REST-биндинга проходит полный цикл.
func TestHTTPDirectory_DrivesSession(t *testing.T) {
	srv, _ := newAPI(t)
	d, err := NewHTTPDirectory(srv.URL, "tok-1", nil)
	require.NoError(t, err)

	s := roster.NewSession(d, "C1", roster.StaticIdentity("u1"), nil)
	require.NoError(t, s.Load(context.Background()))
	assert.True(t, s.View().CanManage)

	results := s.SetQuery(context.Background(), "ann")
	require.Len(t, results, 1)
	assert.Equal(t, "u2", results[0].ID)
}
