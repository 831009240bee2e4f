// Package client talks to the workout tracker API on behalf of workoutctl.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/2beens/workouttracker/internal/routines"
	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/internal/users"
	"github.com/2beens/workouttracker/internal/workouts"
	"github.com/2beens/workouttracker/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

const defaultTimeout = 15 * time.Second

// APIError is a non 2xx response decoded from the {error, field} body.
type APIError struct {
	StatusCode int
	Message    string
	Field      string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%d: %s (%s)", e.StatusCode, e.Message, e.Field)
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, statusCode int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == statusCode
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for the API at baseURL (e.g. http://localhost:3000).
// The session cookie set on login is kept in an in-memory jar.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("new cookie jar: %w", err)
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Jar:       jar,
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/api/register", users.Credentials{
		Username: username,
		Password: password,
	}, nil)
}

func (c *Client) Login(ctx context.Context, username, password string) (*users.LoginResponse, error) {
	var resp users.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/login", users.Credentials{
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
}

func (c *Client) Me(ctx context.Context) (*users.LoginResponse, error) {
	var resp users.LoginResponse
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListRoutines(ctx context.Context) ([]routines.Routine, error) {
	var resp []routines.Routine
	if err := c.do(ctx, http.MethodGet, "/api/routines", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetRoutine(ctx context.Context, id int) (*routines.Routine, error) {
	var resp routines.Routine
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/routines/%d", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateRoutine(ctx context.Context, req routines.CreateRequest) (int, error) {
	var resp routines.CreateResponse
	if err := c.do(ctx, http.MethodPost, "/api/routines", req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

func (c *Client) StartWorkout(ctx context.Context, routineID int) (*workouts.Started, error) {
	var resp workouts.Started
	err := c.do(ctx, http.MethodPost, "/api/workouts/start", workouts.StartRequest{RoutineID: routineID}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// CompleteWorkout posts the completion payload of a finished session.
func (c *Client) CompleteWorkout(ctx context.Context, sessionID int, req workouts.CompleteRequest) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/workouts/%d/complete", sessionID), req, nil)
}

func (c *Client) GetWorkout(ctx context.Context, sessionID int) (*workouts.Session, error) {
	var resp workouts.Session
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/workouts/%d", sessionID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteRoutine(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/routines/%d", id), nil, nil)
}

func (c *Client) History(ctx context.Context) ([]workouts.HistoryEntry, error) {
	var resp []workouts.HistoryEntry
	if err := c.do(ctx, http.MethodGet, "/api/workouts/history", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "client.request")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	)

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", pkg.ContentType.JSON)
	if body != nil {
		req.Header.Set("Content-Type", pkg.ContentType.JSON)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnf("close response body: %s", err)
		}
	}()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var errResp pkg.ErrorResponse
		if json.Unmarshal(respBytes, &errResp) == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
			apiErr.Field = errResp.Field
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBytes, out); err != nil {
		return fmt.Errorf("unmarshal %s %s response: %w", method, path, err)
	}
	return nil
}
