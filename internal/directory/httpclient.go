package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quorum-app/quorum/internal/shared"
)

// HTTPClient talks to the campus directory REST service. Responses are
// plain JSON person records.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient builds a client for the directory service at baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type personPayload struct {
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Title      string `json:"title"`
}

func (p personPayload) toPerson() Person {
	return Person{
		Username:   p.Username,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Email:      p.Email,
		Department: p.Department,
		Title:      p.Title,
	}
}

// Search queries the directory for people matching the term.
func (c *HTTPClient) Search(ctx context.Context, term string) ([]Person, error) {
	endpoint := c.baseURL + "/people?q=" + url.QueryEscape(term)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("directory search request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory search: unexpected status %d", resp.StatusCode)
	}
	var payload []personPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("directory search decode: %w", err)
	}
	people := make([]Person, 0, len(payload))
	for _, p := range payload {
		people = append(people, p.toPerson())
	}
	return people, nil
}

// Lookup fetches one person by exact username.
func (c *HTTPClient) Lookup(ctx context.Context, username string) (Person, error) {
	endpoint := c.baseURL + "/people/" + url.PathEscape(username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Person{}, fmt.Errorf("directory lookup request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Person{}, fmt.Errorf("directory lookup: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Person{}, shared.ErrNotFound
	default:
		return Person{}, fmt.Errorf("directory lookup: unexpected status %d", resp.StatusCode)
	}
	var payload personPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Person{}, fmt.Errorf("directory lookup decode: %w", err)
	}
	return payload.toPerson(), nil
}
