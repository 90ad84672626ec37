// Package diary provides typed calls for the daybook REST surface.
package diary

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fyrsmithlabs/daybook/internal/apiclient"
)

// ErrMissingID is returned when a create reply carries no entry id.
var ErrMissingID = errors.New("server reply is missing the entry id")

// Sender issues one request. *apiclient.Client implements it.
type Sender interface {
	Send(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)
}

// Client calls the backend endpoints. Paths are relative to the API base.
type Client struct {
	api Sender
}

// New wraps api.
func New(api Sender) *Client {
	return &Client{api: api}
}

// Login exchanges an authorization code for an app token. It is sent
// without credentials.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.call(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/accounts/login",
		Body:   req,
	}, &out); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &out, nil
}

// CreateEntry creates an entry and returns it with its server id.
func (c *Client) CreateEntry(ctx context.Context, entry NewEntry) (*Entry, error) {
	var out Entry
	if err := c.call(ctx, apiclient.Request{
		Method:       http.MethodPost,
		Path:         "/entries/",
		Body:         entry,
		RequiresAuth: true,
	}, &out); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	if out.ID == 0 {
		return nil, fmt.Errorf("create entry: %w", ErrMissingID)
	}
	return &out, nil
}

// AnalyzeEntry asks the server to analyze entry id. The reply body is not
// interpreted; callers re-fetch the entry to read the analysis.
func (c *Client) AnalyzeEntry(ctx context.Context, id int64) error {
	if err := c.call(ctx, apiclient.Request{
		Method:       http.MethodPost,
		Path:         fmt.Sprintf("/entries/%d/analyze/", id),
		RequiresAuth: true,
	}, nil); err != nil {
		return fmt.Errorf("analyze entry %d: %w", id, err)
	}
	return nil
}

// GetEntry fetches one entry with its analysis, if any.
func (c *Client) GetEntry(ctx context.Context, id int64) (*Entry, error) {
	var out Entry
	if err := c.call(ctx, apiclient.Request{
		Method:       http.MethodGet,
		Path:         fmt.Sprintf("/entries/%d/", id),
		RequiresAuth: true,
	}, &out); err != nil {
		return nil, fmt.Errorf("get entry %d: %w", id, err)
	}
	return &out, nil
}

// EntryByDate reports whether an entry exists for dateKey (YYYY-MM-DD).
func (c *Client) EntryByDate(ctx context.Context, dateKey string) (*ByDate, error) {
	var out ByDate
	if err := c.call(ctx, apiclient.Request{
		Method:       http.MethodGet,
		Path:         "/entries/by-date/?" + url.Values{"date": {dateKey}}.Encode(),
		RequiresAuth: true,
	}, &out); err != nil {
		return nil, fmt.Errorf("entry by date %s: %w", dateKey, err)
	}
	return &out, nil
}

// CalendarMonth returns date key -> entry count for month (YYYY-MM).
func (c *Client) CalendarMonth(ctx context.Context, month string) (map[string]int, error) {
	out := map[string]int{}
	q := url.Values{"calendar": {"1"}, "month": {month}}
	if err := c.call(ctx, apiclient.Request{
		Method:       http.MethodGet,
		Path:         "/entries/?" + q.Encode(),
		RequiresAuth: true,
	}, &out); err != nil {
		return nil, fmt.Errorf("calendar %s: %w", month, err)
	}
	if out == nil {
		out = map[string]int{}
	}
	return out, nil
}

// Quotes returns the server's quotes in order. Sent without credentials.
func (c *Client) Quotes(ctx context.Context) ([]Quote, error) {
	var out []Quote
	if err := c.call(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/quotes/",
	}, &out); err != nil {
		return nil, fmt.Errorf("quotes: %w", err)
	}
	return out, nil
}

// call sends req and decodes a JSON reply into out. A nil out skips
// decoding, as does an empty body.
func (c *Client) call(ctx context.Context, req apiclient.Request, out any) error {
	resp, err := c.api.Send(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || resp.Payload.Empty() {
		return nil
	}
	return resp.Decode(out)
}
