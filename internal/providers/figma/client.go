package figma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/canvasreview/pkg/models"
)

const defaultBaseURL = "https://api.figma.com"

// Client is a thin HTTP client for the design-file API. One client carries
// one credential: the pipeline builds two, a reader client with the
// end-user's token and a poster client with the bot token. The read path
// and post path are never mixed on one identity.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client for the given credential. An empty baseURL
// targets the public API.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}

	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(rate.Every(1*time.Second), 5), // 1 req/s sustained, burst of 5
	}
}

type commentsResponse struct {
	Comments []models.Comment `json:"comments"`
}

// FetchComments returns the full comment collection for one file. The
// result is the immutable snapshot a batch pass works from.
func (c *Client) FetchComments(ctx context.Context, fileKey string) ([]models.Comment, error) {
	var resp commentsResponse
	path := fmt.Sprintf("/v1/files/%s/comments", url.PathEscape(fileKey))
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("fetch comments for %s: %w", fileKey, err)
	}
	return resp.Comments, nil
}

// PostReply posts text as a threaded reply under commentID.
func (c *Client) PostReply(ctx context.Context, fileKey, commentID, text string) (*models.Comment, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]string{
		"message":    text,
		"comment_id": commentID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal reply payload: %w", err)
	}

	requestURL := fmt.Sprintf("%s/v1/files/%s/comments", c.baseURL, url.PathEscape(fileKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Figma-Token", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post reply to %s: %w", commentID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("post reply failed with status %d: %s", resp.StatusCode, string(body))
	}

	var reply models.Comment
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decode reply response: %w", err)
	}
	return &reply, nil
}

type nodesResponse struct {
	Nodes map[string]struct {
		Document models.Node `json:"document"`
	} `json:"nodes"`
}

// FetchNode returns metadata for one node of the file.
func (c *Client) FetchNode(ctx context.Context, fileKey, nodeID string) (*models.Node, error) {
	var resp nodesResponse
	path := fmt.Sprintf("/v1/files/%s/nodes?ids=%s", url.PathEscape(fileKey), url.QueryEscape(nodeID))
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("fetch node %s: %w", nodeID, err)
	}

	entry, ok := resp.Nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("node %s not found in file %s", nodeID, fileKey)
	}
	node := entry.Document
	if node.ID == "" {
		node.ID = nodeID
	}
	return &node, nil
}

type imagesResponse struct {
	Err    string            `json:"err"`
	Images map[string]string `json:"images"`
}

// RenderImage asks the API to render one node at the given scale and
// returns the locator of the produced bitmap.
func (c *Client) RenderImage(ctx context.Context, fileKey, nodeID string, scale float64) (string, error) {
	var resp imagesResponse
	path := fmt.Sprintf("/v1/images/%s?ids=%s&scale=%g&format=png",
		url.PathEscape(fileKey), url.QueryEscape(nodeID), scale)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return "", fmt.Errorf("render node %s: %w", nodeID, err)
	}
	if resp.Err != "" {
		return "", fmt.Errorf("render node %s: %s", nodeID, resp.Err)
	}

	imageURL, ok := resp.Images[nodeID]
	if !ok || imageURL == "" {
		return "", fmt.Errorf("render node %s: no image produced", nodeID)
	}
	return imageURL, nil
}

// DownloadImage fetches a rendered bitmap into memory. Render locators are
// pre-signed, so no credential header goes out with this request.
func (c *Client) DownloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download image failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Figma-Token", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
