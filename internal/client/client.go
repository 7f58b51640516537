// Package client is an HTTP client for the logsheet REST API.
package client

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tphummel/logsheet/internal/models"
	"github.com/tphummel/logsheet/internal/query"
)

// Client talks to a logsheet server with Bearer token auth.
type Client struct {
	http *resty.Client
}

// New creates a Client targeting endpoint.
func New(endpoint, token string) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(endpoint, "/")).
		SetAuthToken(token).
		SetTimeout(60*time.Second).
		SetHeader("Accept", "application/json")
	return &Client{http: c}
}

// Equipment is a resolved equipment id.
type Equipment struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Group  string `json:"group,omitempty"`
	Source string `json:"source"`
}

// Filter narrows a readings listing. Group requires Date.
type Filter struct {
	UID   string
	Group string
	Date  string
}

// ExportResult describes a report the server wrote to its export directory.
type ExportResult struct {
	Path     string `json:"path"`
	Readings int    `json:"readings"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int               `json:"-"`
	Message string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%d: %s", e.Status, msg)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return fmt.Sprintf("%d: %s (%s)", e.Status, msg, strings.Join(parts, "; "))
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&APIError{})
}

// check converts a failed response into an *APIError.
func check(resp *resty.Response, err error, what string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if !resp.IsError() {
		return nil
	}
	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{}
	}
	apiErr.Status = resp.StatusCode()
	return fmt.Errorf("%s: %w", what, apiErr)
}

// Groups lists the directory groups.
func (c *Client) Groups(ctx context.Context) ([]string, error) {
	var out []string
	resp, err := c.request(ctx).SetResult(&out).Get("/api/v1/groups")
	if err := check(resp, err, "list groups"); err != nil {
		return nil, err
	}
	return out, nil
}

// GroupEquipment lists the equipment of group in sheet row order.
func (c *Client) GroupEquipment(ctx context.Context, group string) ([]models.Equipment, error) {
	var out []models.Equipment
	resp, err := c.request(ctx).
		SetPathParam("group", group).
		SetResult(&out).
		Get("/api/v1/groups/{group}")
	if err := check(resp, err, "get group"); err != nil {
		return nil, err
	}
	return out, nil
}

// Equipment resolves id. Returns nil, nil when the server responds 404.
func (c *Client) Equipment(ctx context.Context, id string) (*Equipment, error) {
	var out Equipment
	resp, err := c.request(ctx).
		SetPathParam("id", id).
		SetResult(&out).
		Get("/api/v1/equipment/{id}")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if err := check(resp, err, fmt.Sprintf("get equipment %q", id)); err != nil {
		return nil, err
	}
	return &out, nil
}

// Registry returns every user-registered id and name.
func (c *Client) Registry(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	resp, err := c.request(ctx).SetResult(&out).Get("/api/v1/registry")
	if err := check(resp, err, "list registry"); err != nil {
		return nil, err
	}
	return out, nil
}

// Register names or renames id.
func (c *Client) Register(ctx context.Context, id, name string) (*Equipment, error) {
	var out Equipment
	resp, err := c.request(ctx).
		SetPathParam("id", id).
		SetBody(map[string]string{"name": name}).
		SetResult(&out).
		Put("/api/v1/registry/{id}")
	if err := check(resp, err, fmt.Sprintf("register %q", id)); err != nil {
		return nil, err
	}
	return &out, nil
}

// Unregister removes id from the registry. Unknown ids are not an error.
func (c *Client) Unregister(ctx context.Context, id string) error {
	resp, err := c.request(ctx).
		SetPathParam("id", id).
		Delete("/api/v1/registry/{id}")
	return check(resp, err, fmt.Sprintf("unregister %q", id))
}

// AddReading submits a capture form and returns the stored reading.
func (c *Client) AddReading(ctx context.Context, in models.CaptureInput) (*models.Reading, error) {
	var out models.Reading
	resp, err := c.request(ctx).
		SetBody(in).
		SetResult(&out).
		Post("/api/v1/readings")
	if err := check(resp, err, "add reading"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Readings lists readings matching f.
func (c *Client) Readings(ctx context.Context, f Filter) ([]models.Reading, error) {
	req := c.request(ctx)
	for k, v := range map[string]string{"uid": f.UID, "group": f.Group, "date": f.Date} {
		if v != "" {
			req.SetQueryParam(k, v)
		}
	}
	var out []models.Reading
	resp, err := req.SetResult(&out).Get("/api/v1/readings")
	if err := check(resp, err, "list readings"); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteReading removes the reading with the given id.
func (c *Client) DeleteReading(ctx context.Context, id string) error {
	resp, err := c.request(ctx).
		SetPathParam("id", id).
		Delete("/api/v1/readings/{id}")
	return check(resp, err, fmt.Sprintf("delete reading %q", id))
}

// DeleteReadingAt removes the first reading for uid created exactly at
// createdAt.
func (c *Client) DeleteReadingAt(ctx context.Context, uid string, createdAt time.Time) error {
	resp, err := c.request(ctx).
		SetQueryParam("uid", uid).
		SetQueryParam("created_at", createdAt.Format(time.RFC3339Nano)).
		Delete("/api/v1/readings")
	return check(resp, err, fmt.Sprintf("delete reading %q", uid))
}

// Sheet fetches the log sheet for group and date.
func (c *Client) Sheet(ctx context.Context, group, date string) (*query.Sheet, error) {
	var out query.Sheet
	resp, err := c.request(ctx).
		SetPathParams(map[string]string{"group": group, "date": date}).
		SetResult(&out).
		Get("/api/v1/sheets/{group}/{date}")
	if err := check(resp, err, "get sheet"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Report downloads a rendered report. It returns the body and the base name
// of the file the server suggested.
func (c *Client) Report(ctx context.Context, group, date, format string) ([]byte, string, error) {
	resp, err := c.request(ctx).
		SetPathParams(map[string]string{"group": group, "date": date, "format": format}).
		Get("/api/v1/reports/{group}/{date}/{format}")
	if err := check(resp, err, "download report"); err != nil {
		return nil, "", err
	}
	return resp.Body(), attachmentName(resp.Header().Get("Content-Disposition")), nil
}

// Export asks the server to write a report into its export directory.
func (c *Client) Export(ctx context.Context, group, date, format string) (*ExportResult, error) {
	var out ExportResult
	resp, err := c.request(ctx).
		SetPathParams(map[string]string{"group": group, "date": date, "format": format}).
		SetResult(&out).
		Post("/api/v1/exports/{group}/{date}/{format}")
	if err := check(resp, err, "export report"); err != nil {
		return nil, err
	}
	return &out, nil
}

// attachmentName extracts the suggested file name from a Content-Disposition
// header. Directory components are stripped so the name is always a single
// path element; "" means no usable name was given.
func attachmentName(header string) string {
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := filepath.Base(filepath.FromSlash(strings.ReplaceAll(params["filename"], `\`, "/")))
	switch name {
	case ".", "..", string(filepath.Separator):
		return ""
	}
	return name
}
