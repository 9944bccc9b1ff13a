// Package twitterapi adapts the twitterapi.io REST service to the canonical
// provider records. It is the cascade's primary provider: cheap, structured,
// and requiring no account authentication.
package twitterapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"skillnet/internal/keypool"
	"skillnet/internal/provider"
)

const defaultBaseURL = "https://api.twitterapi.io/twitter"

// createdAtLayout is Twitter's legacy timestamp format, which the service
// passes through unchanged.
const createdAtLayout = "Mon Jan 02 15:04:05 +0000 2006"

const (
	followingsPageSize = 200
	tweetsPerPage      = 20
)

// Client is a twitterapi.io adapter. Keys rotate round-robin per request.
type Client struct {
	keys    *keypool.Pool
	baseURL string
	http    *http.Client
}

// New builds an adapter over the given key pool.
func New(keys *keypool.Pool) *Client {
	return &Client{
		keys:    keys,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Name() string { return "twitterapi.io" }

// Available reports whether at least one API key is configured. Absence is
// permanent for the process lifetime.
func (c *Client) Available() bool { return c.keys != nil && !c.keys.Empty() }

// get executes one authenticated GET against the service.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	key := c.keys.Next()
	if key == "" {
		return nil, fmt.Errorf("twitterapi.io: no api key configured")
	}

	u := c.baseURL + "/" + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", key)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twitterapi.io %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("twitterapi.io %s: read body: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twitterapi.io %s: HTTP %d: %s", endpoint, resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

// envelope is the service's common response wrapper.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Msg     string `json:"msg"`
}

func (e envelope) errMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Msg != "" {
		return e.Msg
	}
	return "unknown error"
}

type apiUser struct {
	UserName       string `json:"userName"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Followers      int    `json:"followers"`
	Following      int    `json:"following"`
	IsBlueVerified bool   `json:"isBlueVerified"`
	Location       string `json:"location"`
	CreatedAt      string `json:"createdAt"`
	ID             string `json:"id"`
}

func (u apiUser) toProfile() provider.Profile {
	p := provider.Profile{
		UserID:      u.ID,
		Handle:      u.UserName,
		DisplayName: u.Name,
		Bio:         u.Description,
		Verified:    u.IsBlueVerified,
		Followers:   u.Followers,
		Following:   u.Following,
		Location:    u.Location,
	}
	if u.CreatedAt != "" {
		if t, err := time.Parse(createdAtLayout, u.CreatedAt); err == nil {
			p.CreatedAt = t
		}
	}
	return p
}

type apiTweet struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	CreatedAt    string `json:"createdAt"`
	RetweetCount int    `json:"retweetCount"`
	LikeCount    int    `json:"likeCount"`
	ReplyCount   int    `json:"replyCount"`
	ViewCount    int    `json:"viewCount"`
	IsReply      bool   `json:"isReply"`
}

func (t apiTweet) toPost() provider.Post {
	p := provider.Post{
		ID:       t.ID,
		Text:     t.Text,
		Likes:    t.LikeCount,
		Retweets: t.RetweetCount,
		Replies:  t.ReplyCount,
		Views:    t.ViewCount,
		IsReply:  t.IsReply,
	}
	if t.CreatedAt != "" {
		if ts, err := time.Parse(createdAtLayout, t.CreatedAt); err == nil {
			p.CreatedAt = ts
		}
	}
	return p
}

// Profile fetches user/info and normalizes it.
func (c *Client) Profile(ctx context.Context, h string) (*provider.Profile, provider.Outcome) {
	body, err := c.get(ctx, "user/info", url.Values{"userName": {h}})
	if err != nil {
		return nil, provider.Fail(err)
	}
	p, err := parseProfile(body)
	if err != nil {
		return nil, provider.Fail(err)
	}
	if p == nil {
		return nil, provider.Short("no profile data")
	}
	return p, provider.OK()
}

func parseProfile(body []byte) (*provider.Profile, error) {
	var raw struct {
		envelope
		Data *apiUser `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal user/info: %w", err)
	}
	if raw.Status != "success" {
		return nil, fmt.Errorf("user/info: %s", raw.errMessage())
	}
	if raw.Data == nil {
		return nil, nil
	}
	p := raw.Data.toProfile()
	return &p, nil
}

// Posts fetches up to limit recent tweets, following the cursor through
// 20-per-page responses. A mid-pagination error returns the tweets gathered
// so far rather than discarding them.
func (c *Client) Posts(ctx context.Context, h string, limit int) ([]provider.Post, provider.Outcome) {
	var all []provider.Post
	cursor := ""

	for len(all) < limit {
		params := url.Values{
			"userName":       {h},
			"includeReplies": {"false"},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		body, err := c.get(ctx, "user/last_tweets", params)
		if err != nil {
			if len(all) > 0 {
				slog.Warn("twitterapi.io pagination aborted, keeping partial page",
					slog.String("handle", h),
					slog.Int("tweets", len(all)),
					slog.Any("error", err))
				break
			}
			return nil, provider.Fail(err)
		}

		page, next, hasNext, err := parseTweetPage(body)
		if err != nil {
			if len(all) > 0 {
				break
			}
			return nil, provider.Fail(err)
		}
		if len(page) == 0 {
			break
		}
		for _, t := range page {
			if len(all) >= limit {
				break
			}
			all = append(all, t.toPost())
		}
		if !hasNext {
			break
		}
		cursor = next
	}

	if len(all) == 0 {
		return nil, provider.Short("no tweets returned")
	}
	return all, provider.OK()
}

func parseTweetPage(body []byte) (tweets []apiTweet, nextCursor string, hasNext bool, err error) {
	var raw struct {
		envelope
		Tweets      []apiTweet `json:"tweets"`
		HasNextPage bool       `json:"has_next_page"`
		NextCursor  string     `json:"next_cursor"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, "", false, fmt.Errorf("unmarshal user/last_tweets: %w", err)
	}
	if raw.Status != "success" {
		return nil, "", false, fmt.Errorf("user/last_tweets: %s", raw.errMessage())
	}
	return raw.Tweets, raw.NextCursor, raw.HasNextPage, nil
}

// Followings fetches up to limit followed accounts, 200 per page.
func (c *Client) Followings(ctx context.Context, h string, limit int) ([]provider.Profile, provider.Outcome) {
	var all []provider.Profile
	cursor := ""

	for len(all) < limit {
		params := url.Values{
			"userName": {h},
			"pageSize": {fmt.Sprint(followingsPageSize)},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		body, err := c.get(ctx, "user/followings", params)
		if err != nil {
			if len(all) > 0 {
				break
			}
			return nil, provider.Fail(err)
		}

		page, next, hasNext, err := parseFollowingsPage(body)
		if err != nil {
			if len(all) > 0 {
				break
			}
			return nil, provider.Fail(err)
		}
		if len(page) == 0 {
			break
		}
		for _, u := range page {
			if len(all) >= limit {
				break
			}
			all = append(all, u.toProfile())
		}
		if !hasNext {
			break
		}
		cursor = next
	}

	if len(all) == 0 {
		return nil, provider.Short("empty followings list")
	}
	return all, provider.OK()
}

func parseFollowingsPage(body []byte) (users []apiUser, nextCursor string, hasNext bool, err error) {
	var raw struct {
		envelope
		Followings  []apiUser `json:"followings"`
		HasNextPage bool      `json:"has_next_page"`
		NextCursor  string    `json:"next_cursor"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, "", false, fmt.Errorf("unmarshal user/followings: %w", err)
	}
	if raw.Status != "success" {
		return nil, "", false, fmt.Errorf("user/followings: %s", raw.errMessage())
	}
	return raw.Followings, raw.NextCursor, raw.HasNextPage, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
