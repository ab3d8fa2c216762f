// Package client provides the HTTP client for the comment service and the
// ThreadView session state a UI drives: a flattened comment tree with
// incremental top-level and reply pagination.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gofrs/uuid"

	"blogcomments/pkg/api"
	"blogcomments/pkg/models"
)

const timeout = 5 * time.Second

var (
	ErrInvalidRequest = fmt.Errorf("service rejected the request")
	ErrUnauthorized   = fmt.Errorf("missing or invalid credential")
	ErrNotAllowed     = fmt.Errorf("operation not allowed")
	ErrNotFound       = fmt.Errorf("not found")
)

type Client struct {
	baseURL string
	token   string
	hc      *http.Client
}

// NewClient returns a client for the comment service at baseURL. The token is
// attached as a bearer credential to the operations that require one; fetches
// work without it.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		hc:      &http.Client{Timeout: timeout},
	}
}

// AddComment posts a new comment or reply.
func (c *Client) AddComment(ctx context.Context, req api.AddCommentRequest) (api.AddCommentResponse, error) {
	var resp api.AddCommentResponse
	err := c.post(ctx, "/add-comment", req, &resp, true)

	return resp, err
}

// Comments fetches a page of the post's top-level comments. Page size is
// fixed server-side.
func (c *Client) Comments(ctx context.Context, postID uuid.UUID, skip int) ([]models.Comment, error) {
	var comments []models.Comment
	req := api.BlogCommentsRequest{PostID: postID, Skip: skip}
	if err := c.post(ctx, "/get-blog-comments", req, &comments, false); err != nil {
		return nil, err
	}

	return comments, nil
}

// Replies fetches a page of the comment's direct replies.
func (c *Client) Replies(ctx context.Context, commentID uuid.UUID, skip int) ([]models.Comment, error) {
	var resp api.RepliesResponse
	req := api.RepliesRequest{CommentID: commentID, Skip: skip}
	if err := c.post(ctx, "/get-replies", req, &resp, false); err != nil {
		return nil, err
	}

	return resp.Replies, nil
}

// DeleteComment asks the service to cascade-delete the comment's subtree.
func (c *Client) DeleteComment(ctx context.Context, commentID uuid.UUID) error {
	req := api.DeleteCommentRequest{CommentID: commentID}

	return c.post(ctx, "/delete-comments", req, nil, true)
}

// Activity fetches the post's comment counters.
func (c *Client) Activity(ctx context.Context, postID uuid.UUID) (models.Activity, error) {
	targetURL := fmt.Sprintf("%s/activity/%s", c.baseURL, postID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return models.Activity{}, err
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return models.Activity{}, err
	}
	defer resp.Body.Close()

	if err := statusErr(resp); err != nil {
		return models.Activity{}, err
	}

	var act models.Activity
	if err := json.NewDecoder(resp.Body).Decode(&act); err != nil {
		return models.Activity{}, err
	}

	return act, nil
}

func (c *Client) post(ctx context.Context, path string, reqBody, respBody interface{}, auth bool) error {
	b, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(b))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if auth && c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := statusErr(resp); err != nil {
		return err
	}

	if respBody == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(respBody)
}

// statusErr maps non-2xx responses to client errors, keeping the server's
// message for context.
func statusErr(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	var kind error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		kind = ErrInvalidRequest
	case http.StatusUnauthorized:
		kind = ErrUnauthorized
	case http.StatusForbidden:
		kind = ErrNotAllowed
	case http.StatusNotFound:
		kind = ErrNotFound
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	return fmt.Errorf("%w: %s", kind, bytes.TrimSpace(msg))
}
