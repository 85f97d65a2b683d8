// Package garmin wraps the wearable-data provider: a typed HTTP client plus
// a retrying façade that re-authenticates on session-looking failures.
package garmin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultBaseURL = "https://connectapi.garmin.com"
	defaultSSOURL  = "https://sso.garmin.com/sso/signin"
)

// Client is the opaque provider capability: given a date or date range and a
// metric name, return a decoded structure or fail.
type Client interface {
	DailyStats(ctx context.Context, date string) (*DailyStats, error)
	SleepData(ctx context.Context, date string) (*SleepData, error)
	HeartRateDay(ctx context.Context, date string) (*HeartRateDay, error)
	StressDay(ctx context.Context, date string) (*StressDay, error)
	Hydration(ctx context.Context, date string) (*Hydration, error)
	HRVSummary(ctx context.Context, date string) (*HRVSummary, error)
	BodyComposition(ctx context.Context, date string) (*BodyComposition, error)
	WeighIns(ctx context.Context, start, end string) (WeighIns, error)
	Goals(ctx context.Context, status string) ([]Goal, error)
	Activities(ctx context.Context, start, limit int) ([]Activity, error)
	ActivitiesByDate(ctx context.Context, start, end string) ([]Activity, error)
	ActivityDetail(ctx context.Context, activityID int64) (*ActivityDetail, error)
	ProgressSummary(ctx context.Context, start, end string) ([]ProgressEntry, error)
}

// HTTPError carries the status and a truncated response body so the retry
// heuristics can inspect the provider's error text.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
	URL        string
}

const maxErrorBodySize = 500

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s (status %d): %s", e.Status, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s (status %d)", e.Status, e.StatusCode)
}

// connectClient is the HTTP implementation of Client. One authenticated
// client maps to one provider session; the façade discards and redials it
// when the session looks expired.
type connectClient struct {
	baseURL string
	token   *oauth2.Token
	client  *http.Client
}

// Dial authenticates against the provider SSO endpoint and returns a live
// client. The returned client is not safe to keep past a session failure;
// callers should go through the Facade.
func Dial(ctx context.Context, email, password string) (Client, error) {
	return dialURL(ctx, defaultSSOURL, defaultBaseURL, email, password)
}

func dialURL(ctx context.Context, ssoURL, baseURL, email, password string) (Client, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	form := url.Values{
		"username": {email},
		"password": {password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ssoURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	if err := parseErrorResponse(resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	var token oauth2.Token
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("login: no access token in response")
	}

	return &connectClient{
		baseURL: baseURL,
		token:   &token,
		client:  oauth2.NewClient(ctx, oauth2.StaticTokenSource(&token)),
	}, nil
}

func parseErrorResponse(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	bodyBytes, _ := io.ReadAll(resp.Body)
	body := string(bodyBytes)
	if len(body) > maxErrorBodySize {
		body = body[:maxErrorBodySize] + "..."
	}
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Status:     http.StatusText(resp.StatusCode),
		Body:       body,
		URL:        resp.Request.URL.String(),
	}
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *connectClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if err := parseErrorResponse(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *connectClient) DailyStats(ctx context.Context, date string) (*DailyStats, error) {
	var out DailyStats
	if err := c.get(ctx, "/usersummary-service/usersummary/daily?calendarDate="+date, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *connectClient) SleepData(ctx context.Context, date string) (*SleepData, error) {
	var out SleepData
	if err := c.get(ctx, "/sleep-service/sleep/dailySleepData?date="+date, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *connectClient) HeartRateDay(ctx context.Context, date string) (*HeartRateDay, error) {
	var out HeartRateDay
	if err := c.get(ctx, "/wellness-service/wellness/dailyHeartRate?date="+date, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *connectClient) StressDay(ctx context.Context, date string) (*StressDay, error) {
	var out StressDay
	if err := c.get(ctx, "/wellness-service/wellness/dailyStress/"+date, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *connectClient) Hydration(ctx context.Context, date string) (*Hydration, error) {
	var out Hydration
	if err := c.get(ctx, "/usersummary-service/usersummary/hydration/daily/"+date, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *connectClient) HRVSummary(ctx context.Context, date string) (*HRVSummary, error) {
	var out struct {
		HRVSummary HRVSummary `json:"hrvSummary"`
	}
	if err := c.get(ctx, "/hrv-service/hrv/"+date, &out); err != nil {
		return nil, err
	}
	return &out.HRVSummary, nil
}

func (c *connectClient) BodyComposition(ctx context.Context, date string) (*BodyComposition, error) {
	var out BodyComposition
	path := fmt.Sprintf("/weight-service/weight/dateRange?startDate=%s&endDate=%s", date, date)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *connectClient) WeighIns(ctx context.Context, start, end string) (WeighIns, error) {
	var out WeighIns
	path := fmt.Sprintf("/weight-service/weight/range/%s/%s?includeAll=true", start, end)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *connectClient) Goals(ctx context.Context, status string) ([]Goal, error) {
	var out []Goal
	if err := c.get(ctx, "/goal-service/goal/goals?status="+status, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *connectClient) Activities(ctx context.Context, start, limit int) ([]Activity, error) {
	var out []Activity
	path := fmt.Sprintf("/activitylist-service/activities/search/activities?start=%d&limit=%d", start, limit)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *connectClient) ActivitiesByDate(ctx context.Context, start, end string) ([]Activity, error) {
	var out []Activity
	path := fmt.Sprintf("/activitylist-service/activities/search/activities?startDate=%s&endDate=%s&limit=1000", start, end)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *connectClient) ActivityDetail(ctx context.Context, activityID int64) (*ActivityDetail, error) {
	var out ActivityDetail
	path := fmt.Sprintf("/activity-service/activity/%d/details?maxChartSize=2000&maxPolylineSize=4000", activityID)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *connectClient) ProgressSummary(ctx context.Context, start, end string) ([]ProgressEntry, error) {
	var out []ProgressEntry
	path := fmt.Sprintf("/fitnessstats-service/activity?startDate=%s&endDate=%s&aggregation=lifetime&groupByParentActivityType=true", start, end)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}
