package listservs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPGroupsClient provisions hosted groups through the campus groups
// admin service.
type HTTPGroupsClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGroupsClient builds a groups client for the admin service at
// baseURL.
func NewHTTPGroupsClient(baseURL string) *HTTPGroupsClient {
	return &HTTPGroupsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPGroupsClient) post(ctx context.Context, path string, body any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("groups request encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("groups request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("groups call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("groups call %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}

// EnsureGroup creates the hosted group when it does not exist yet.
func (c *HTTPGroupsClient) EnsureGroup(ctx context.Context, address, name string) error {
	return c.post(ctx, "/groups", map[string]string{"address": address, "name": name})
}

// AddMember subscribes an email address to the hosted group.
func (c *HTTPGroupsClient) AddMember(ctx context.Context, groupAddress, memberEmail string) error {
	return c.post(ctx, "/groups/"+url.PathEscape(groupAddress)+"/members", map[string]string{"email": memberEmail})
}

// RemoveMember unsubscribes an email address from the hosted group.
func (c *HTTPGroupsClient) RemoveMember(ctx context.Context, groupAddress, memberEmail string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/groups/"+url.PathEscape(groupAddress)+"/members/"+url.PathEscape(memberEmail), nil)
	if err != nil {
		return fmt.Errorf("groups request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("groups call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("groups remove member: unexpected status %d", resp.StatusCode)
	}
	return nil
}
