package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"time"

	"github.com/sakif/alumni-network/internal/model"
)

// =========================================================================
// Auth
// =========================================================================

type RegisterRequest struct {
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Password  string       `json:"password"`
	BatchYear int          `json:"batchYear"`
	Gender    model.Gender `json:"gender"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register creates an alumni account. The returned token is not stored;
// call Login or SetToken to act as the new user.
func (c *Client) Register(ctx context.Context, in RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login signs in and stores the returned token for subsequent requests.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	in := map[string]string{"email": email, "password": password}
	var out AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", nil, in, &out); err != nil {
		return nil, err
	}
	if out.Token != "" {
		c.SetToken(out.Token)
	}
	return &out, nil
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var out model.User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =========================================================================
// Events
// =========================================================================

type EventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Image       string    `json:"image,omitempty"`
}

// Events lists events by date. With upcomingOnly, past events are left out.
func (c *Client) Events(ctx context.Context, upcomingOnly bool) ([]model.Event, error) {
	var query url.Values
	if upcomingOnly {
		query = url.Values{"upcoming": {"true"}}
	}
	var out []model.Event
	if err := c.doJSON(ctx, http.MethodGet, "/events", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateEvent(ctx context.Context, in EventRequest) (*model.Event, error) {
	var out model.Event
	if err := c.doJSON(ctx, http.MethodPost, "/events", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateEvent changes the fields set in patch; nil fields are left alone.
func (c *Client) UpdateEvent(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	var out model.Event
	if err := c.doJSON(ctx, http.MethodPut, "/events/"+url.PathEscape(id), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/events/"+url.PathEscape(id), nil, nil, nil)
}

// RegisterForEvent signs the current user up and returns the updated event.
func (c *Client) RegisterForEvent(ctx context.Context, id string) (*model.Event, error) {
	var out model.Event
	if err := c.doJSON(ctx, http.MethodPost, "/events/"+url.PathEscape(id)+"/register", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =========================================================================
// News
// =========================================================================

type NewsRequest struct {
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Image    string         `json:"image,omitempty"`
	Category model.Category `json:"category,omitempty"`
}

// News lists news items newest first. An empty category lists all of them.
func (c *Client) News(ctx context.Context, category model.Category) ([]model.News, error) {
	var query url.Values
	if category != "" {
		query = url.Values{"category": {string(category)}}
	}
	var out []model.News
	if err := c.doJSON(ctx, http.MethodGet, "/news", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateNews(ctx context.Context, in NewsRequest) (*model.News, error) {
	var out model.News
	if err := c.doJSON(ctx, http.MethodPost, "/news", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateNews(ctx context.Context, id string, patch model.NewsPatch) (*model.News, error) {
	var out model.News
	if err := c.doJSON(ctx, http.MethodPut, "/news/"+url.PathEscape(id), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteNews(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/news/"+url.PathEscape(id), nil, nil, nil)
}

// =========================================================================
// Alumni
// =========================================================================

// AlumniQuery narrows the directory listing. Zero values do not filter.
type AlumniQuery struct {
	BatchYear int
	House     model.House
}

func (c *Client) Alumni(ctx context.Context, q AlumniQuery) ([]model.User, error) {
	query := url.Values{}
	if q.BatchYear != 0 {
		query.Set("batchYear", strconv.Itoa(q.BatchYear))
	}
	if q.House != "" {
		query.Set("house", string(q.House))
	}
	var out []model.User
	if err := c.doJSON(ctx, http.MethodGet, "/alumni", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Picture is an image uploaded with a profile update.
type Picture struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

// ProfileUpdate is sent as multipart/form-data. Nil fields are not sent
// and stay unchanged; ShowPhoneNumber is always sent.
type ProfileUpdate struct {
	Name                *string
	Email               *string
	Gender              *model.Gender
	BatchYear           *int
	PhoneNumber         *string
	ShowPhoneNumber     bool
	House               *model.House
	Address             *string
	Occupation          *string
	OccupationSubField  *string
	Participation       []string
	CustomParticipation *string
	Picture             *Picture
}

// UpdateProfile edits the signed-in user's own profile.
func (c *Client) UpdateProfile(ctx context.Context, in ProfileUpdate) (*model.User, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := writeProfileForm(mw, in); err != nil {
		return nil, fmt.Errorf("client: encode profile form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("client: encode profile form: %w", err)
	}

	var out model.User
	if err := c.do(ctx, http.MethodPut, c.endpoint("/alumni/profile", nil), &buf, mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func writeProfileForm(mw *multipart.Writer, in ProfileUpdate) error {
	fields := []struct {
		key   string
		value *string
	}{
		{"name", in.Name},
		{"email", in.Email},
		{"phoneNumber", in.PhoneNumber},
		{"address", in.Address},
		{"occupation", in.Occupation},
		{"occupationSubField", in.OccupationSubField},
		{"customParticipation", in.CustomParticipation},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if err := mw.WriteField(f.key, *f.value); err != nil {
			return err
		}
	}
	if in.Gender != nil {
		if err := mw.WriteField("gender", string(*in.Gender)); err != nil {
			return err
		}
	}
	if in.House != nil {
		if err := mw.WriteField("house", string(*in.House)); err != nil {
			return err
		}
	}
	if in.BatchYear != nil {
		if err := mw.WriteField("batchYear", strconv.Itoa(*in.BatchYear)); err != nil {
			return err
		}
	}
	if err := mw.WriteField("showPhoneNumber", strconv.FormatBool(in.ShowPhoneNumber)); err != nil {
		return err
	}
	for _, p := range in.Participation {
		if err := mw.WriteField("participation[]", p); err != nil {
			return err
		}
	}

	if in.Picture == nil {
		return nil
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="profilePicture"; filename=%q`, in.Picture.Filename))
	h.Set("Content-Type", in.Picture.ContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, in.Picture.Data)
	return err
}

// =========================================================================
// Health
// =========================================================================

type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database,omitempty"`
}

func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
