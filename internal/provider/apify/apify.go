// Package apify adapts Apify's hosted X scraping actors. It is the slowest
// provider (each call spins up an actor run) and sits late in the cascade.
// It covers profiles and posts only; neither actor exposes followings.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"skillnet/internal/provider"
)

const defaultBaseURL = "https://api.apify.com/v2"

const (
	tweetScraperActor = "apidojo~tweet-scraper"
	userScraperActor  = "apidojo~twitter-user-scraper"
)

const createdAtLayout = "Mon Jan 02 15:04:05 +0000 2006"

// Client runs Apify actors synchronously and reads their default dataset.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

func New(token string) *Client {
	return &Client{
		token:   token,
		baseURL: defaultBaseURL,
		// Actor runs routinely take minutes.
		http: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *Client) Name() string { return "apify" }

func (c *Client) Available() bool { return c.token != "" }

// runActor starts an actor run and returns its dataset items once the run
// finishes. The run-sync endpoint blocks server-side until completion.
func (c *Client) runActor(ctx context.Context, actor string, input any) ([]byte, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("apify: marshal actor input: %w", err)
	}

	u := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items?token=%s",
		c.baseURL, actor, url.QueryEscape(c.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apify %s: %w", actor, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("apify %s: read body: %w", actor, err)
	}
	// 201 on success; 400/408 carry an error object.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("apify %s: HTTP %d: %s", actor, resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

type tweetItem struct {
	FullText      string `json:"full_text"`
	Text          string `json:"text"`
	ID            string `json:"id_str"`
	CreatedAt     string `json:"created_at"`
	RetweetCount  int    `json:"retweet_count"`
	FavoriteCount int    `json:"favorite_count"`
	ReplyCount    int    `json:"reply_count"`
	InReplyTo     string `json:"in_reply_to_status_id_str"`
}

func (t tweetItem) toPost() provider.Post {
	p := provider.Post{
		ID:       t.ID,
		Text:     t.FullText,
		Retweets: t.RetweetCount,
		Likes:    t.FavoriteCount,
		Replies:  t.ReplyCount,
		IsReply:  t.InReplyTo != "",
	}
	if p.Text == "" {
		p.Text = t.Text
	}
	if ts, err := time.Parse(createdAtLayout, t.CreatedAt); err == nil {
		p.CreatedAt = ts
	}
	return p
}

// Posts runs the tweet-scraper actor against the user's profile URL.
func (c *Client) Posts(ctx context.Context, h string, limit int) ([]provider.Post, provider.Outcome) {
	input := map[string]any{
		"startUrls":  []map[string]string{{"url": "https://twitter.com/" + h}},
		"maxTweets":  limit,
		"onlyTweets": true,
		"searchMode": "user",
	}
	body, err := c.runActor(ctx, tweetScraperActor, input)
	if err != nil {
		return nil, provider.Fail(err)
	}
	posts, err := parseTweetItems(body)
	if err != nil {
		return nil, provider.Fail(err)
	}
	if len(posts) == 0 {
		return nil, provider.Short("actor returned no tweets")
	}
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, provider.OK()
}

func parseTweetItems(body []byte) ([]provider.Post, error) {
	var items []tweetItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("unmarshal dataset items: %w", err)
	}
	posts := make([]provider.Post, 0, len(items))
	for _, it := range items {
		posts = append(posts, it.toPost())
	}
	return posts, nil
}

type userItem struct {
	ScreenName     string `json:"screen_name"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	FollowersCount int    `json:"followers_count"`
	FriendsCount   int    `json:"friends_count"`
	Verified       bool   `json:"verified"`
	Location       string `json:"location"`
	CreatedAt      string `json:"created_at"`
	IDStr          string `json:"id_str"`
}

// Profile runs the user-scraper actor and takes the first dataset item.
func (c *Client) Profile(ctx context.Context, h string) (*provider.Profile, provider.Outcome) {
	input := map[string]any{
		"startUrls": []map[string]string{{"url": "https://twitter.com/" + h}},
		"maxItems":  1,
	}
	body, err := c.runActor(ctx, userScraperActor, input)
	if err != nil {
		return nil, provider.Fail(err)
	}
	p, err := parseUserItems(body)
	if err != nil {
		return nil, provider.Fail(err)
	}
	if p == nil {
		return nil, provider.Short("actor returned no profile")
	}
	return p, provider.OK()
}

func parseUserItems(body []byte) (*provider.Profile, error) {
	var items []userItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("unmarshal dataset items: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	u := items[0]
	p := provider.Profile{
		UserID:      u.IDStr,
		Handle:      u.ScreenName,
		DisplayName: u.Name,
		Bio:         u.Description,
		Verified:    u.Verified,
		Followers:   u.FollowersCount,
		Following:   u.FriendsCount,
		Location:    u.Location,
	}
	if ts, err := time.Parse(createdAtLayout, u.CreatedAt); err == nil {
		p.CreatedAt = ts
	}
	return &p, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
