// internal/feed/client.go
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrNoPost is returned by LatestPost when the provider has no post to offer.
// It is distinct from an IngestionError so callers can tell "nothing to
// ingest yet" apart from "the fetch broke".
var ErrNoPost = errors.New("feed: no post available")

// ErrorKind classifies why an ingestion attempt failed.
type ErrorKind string

const (
	KindNetwork     ErrorKind = "network"
	KindAuth        ErrorKind = "auth"
	KindRateLimited ErrorKind = "rate_limited"
	KindMalformed   ErrorKind = "malformed"
)

// IngestionError wraps any failure talking to the feed provider. The engine
// recovers from every kind by falling back to a training round; the kind is
// kept so logs and tests can distinguish an expired token from a flaky link.
type IngestionError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("feed %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// Post is the most recent feed post, the anchor for a live round.
type Post struct {
	ID        string    `json:"id"`
	Permalink string    `json:"permalink"`
	Timestamp time.Time `json:"timestamp"`
}

// Comment is one raw comment on a post, before qualification.
type Comment struct {
	CommentID string    `json:"commentId"`
	Handle    string    `json:"handle"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// commentsPage is one page of the provider's paginated comment listing.
type commentsPage struct {
	Items      []Comment `json:"items"`
	NextCursor string    `json:"nextCursor"`
}

// Client talks to the external comment feed over HTTP. It performs no
// retries and holds no state beyond the configured endpoint and token;
// every call is bounded by the configured timeout.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *log.Logger
}

// NewClient builds a feed client. timeout bounds each individual HTTP call.
func NewClient(baseURL, token string, timeout time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// LatestPost fetches the provider's most recent post. Returns ErrNoPost when
// the provider reports an empty result set, *IngestionError on any failure.
func (c *Client) LatestPost(ctx context.Context) (*Post, error) {
	var body struct {
		Posts []Post `json:"posts"`
	}
	if err := c.getJSON(ctx, "/posts/latest", nil, &body); err != nil {
		return nil, err
	}
	if len(body.Posts) == 0 {
		return nil, ErrNoPost
	}
	return &body.Posts[0], nil
}

// Comments fetches every comment on the given post, following the provider's
// continuation cursor until exhausted.
func (c *Client) Comments(ctx context.Context, postID string) ([]Comment, error) {
	var all []Comment
	cursor := ""
	for {
		params := url.Values{"post_id": {postID}}
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		var page commentsPage
		if err := c.getJSON(ctx, "/comments", params, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if page.NextCursor == "" {
			c.logger.Debugf("fetched %d comments for post %s", len(all), postID)
			return all, nil
		}
		cursor = page.NextCursor
	}
}

// getJSON performs one authenticated GET and decodes the JSON response into
// out, mapping transport and status failures onto IngestionError kinds.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &IngestionError{Kind: KindNetwork, Op: path, Err: err}
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &IngestionError{Kind: KindNetwork, Op: path, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &IngestionError{Kind: KindAuth, Op: path, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &IngestionError{Kind: KindRateLimited, Op: path, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return &IngestionError{Kind: KindNetwork, Op: path, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &IngestionError{Kind: KindMalformed, Op: path, Err: err}
	}
	return nil
}
