// Package canvas is a minimal client for the Canvas LMS REST API, covering
// only the lookups the tutoring pipeline consumes.
package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const pageSize = 100

type Client struct {
	siteURL    string
	token      string
	httpClient *http.Client
}

// NewClient builds a Canvas client over a shared HTTP client.
func NewClient(siteURL, token string, httpClient *http.Client) *Client {
	return &Client{
		siteURL:    strings.TrimRight(siteURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

type Course struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Assignment struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.siteURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("canvas request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("canvas returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode canvas response: %w", err)
	}
	return nil
}

func (c *Client) GetCourse(ctx context.Context, courseID int64) (*Course, error) {
	var course Course
	path := fmt.Sprintf("/api/v1/courses/%d", courseID)
	if err := c.fetch(ctx, path, nil, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// GetAssignments pages through all assignments of a course.
func (c *Client) GetAssignments(ctx context.Context, courseID int64) ([]Assignment, error) {
	path := fmt.Sprintf("/api/v1/courses/%d/assignments", courseID)

	var assignments []Assignment
	for page := 1; ; page++ {
		params := url.Values{
			"page":     {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(pageSize)},
		}
		var pageAssignments []Assignment
		if err := c.fetch(ctx, path, params, &pageAssignments); err != nil {
			return nil, err
		}
		if len(pageAssignments) == 0 {
			break
		}
		assignments = append(assignments, pageAssignments...)
	}
	return assignments, nil
}

// AssignmentDescription returns the description of the named assignment
// (case-insensitive match), or an empty string if the course has no such
// assignment.
func (c *Client) AssignmentDescription(ctx context.Context, courseID int64, name string) (string, error) {
	assignments, err := c.GetAssignments(ctx, courseID)
	if err != nil {
		return "", err
	}
	for _, assignment := range assignments {
		if strings.EqualFold(assignment.Name, name) {
			return assignment.Description, nil
		}
	}
	return "", nil
}
