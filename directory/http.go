package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/fair-measure/models"
	"github.com/Dosada05/fair-measure/roster"
)

const defaultTimeout = 10 * time.Second

// HTTPDirectory - roster.Directory поверх REST API сервера.
type HTTPDirectory struct {
	baseURL *url.URL
	token   string
	client  *http.Client
}

// NewHTTPDirectory создает клиента. token может быть пустым для публичных операций.
func NewHTTPDirectory(baseURL, token string, client *http.Client) (*HTTPDirectory, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPDirectory{baseURL: u, token: token, client: client}, nil
}

// Session - результат входа.
type Session struct {
	Token  string
	UserID string
	Email  string
}

// Login получает токен по email и паролю.
func (d *HTTPDirectory) Login(ctx context.Context, email, password string) (Session, error) {
	var out struct {
		Token string       `json:"token"`
		User  *models.User `json:"user"`
	}
	in := models.Credentials{Email: email, Password: password}
	if err := d.do(ctx, http.MethodPost, "/auth/login", nil, in, &out); err != nil {
		return Session{}, err
	}
	if out.User == nil || out.Token == "" {
		return Session{}, fmt.Errorf("%w: login response is missing token or user", roster.ErrNetworkFailure)
	}
	return Session{Token: out.Token, UserID: out.User.ID, Email: out.User.Email}, nil
}

func (d *HTTPDirectory) ListMembers(ctx context.Context, competitionID string) ([]roster.Member, error) {
	var out struct {
		Members []*models.Member `json:"members"`
	}
	path := "/competitions/" + url.PathEscape(competitionID) + "/members"
	if err := d.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return toRosterMembers(out.Members), nil
}

func (d *HTTPDirectory) SearchUsers(ctx context.Context, email string, limit int) ([]roster.User, error) {
	var out struct {
		Users []*models.User `json:"users"`
	}
	query := url.Values{}
	query.Set("email", email)
	query.Set("limit", strconv.Itoa(limit))
	if err := d.do(ctx, http.MethodGet, "/profiles", query, nil, &out); err != nil {
		return nil, err
	}
	return toRosterUsers(out.Users), nil
}

func (d *HTTPDirectory) AddMember(ctx context.Context, competitionID, userID string, role roster.Role) (roster.Member, error) {
	var out struct {
		Member *models.Member `json:"member"`
	}
	in := struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}{UserID: userID, Role: string(role)}
	path := "/competitions/" + url.PathEscape(competitionID) + "/members"
	if err := d.do(ctx, http.MethodPost, path, nil, in, &out); err != nil {
		return roster.Member{}, err
	}
	if out.Member == nil {
		return roster.Member{}, fmt.Errorf("%w: add member response is empty", roster.ErrNetworkFailure)
	}
	return toRosterMember(out.Member), nil
}

func (d *HTTPDirectory) RemoveMember(ctx context.Context, memberID string) error {
	return d.do(ctx, http.MethodDelete, "/members/"+url.PathEscape(memberID), nil, nil, nil)
}

// WebSocketURL возвращает адрес подписки на события состава.
func (d *HTTPDirectory) WebSocketURL(competitionID string) string {
	u := *d.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/competitions/" + url.PathEscape(competitionID)
	return u.String()
}

func (d *HTTPDirectory) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	u := *d.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", roster.ErrNetworkFailure, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", roster.ErrNetworkFailure, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s response: %w", roster.ErrNetworkFailure, method, path, err)
	}
	return nil
}

// statusError сопоставляет HTTP статус с таксономией roster.
func statusError(resp *http.Response) error {
	var envelope struct {
		Error interface{} `json:"error"`
	}
	message := resp.Status
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &envelope) == nil && envelope.Error != nil {
		message = fmt.Sprint(envelope.Error)
	}

	var kind error
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusForbidden, http.StatusConflict, http.StatusUnprocessableEntity:
		kind = roster.ErrValidationFailure
	case http.StatusNotFound:
		kind = roster.ErrNotFoundFailure
	default:
		kind = roster.ErrNetworkFailure
	}
	return &StatusError{Code: resp.StatusCode, Message: message, kind: kind}
}

// StatusError - неуспешный ответ API.
type StatusError struct {
	Code    int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return e.kind }
