// Package badger adapts the ScrapeBadger REST service. It is the second
// provider in the default cascade and the only one with a highlights
// endpoint, so it also backs enriched profile fetches.
//
// ScrapeBadger mixes two response shapes for tweets and users: a flattened
// model and the raw GraphQL "legacy" nesting. Normalization accepts both.
package badger

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

const defaultBaseURL = "https://api.scrapebadger.com/v1"

const createdAtLayout = "Mon Jan 02 15:04:05 +0000 2006"

const maxHighlights = 10

// Client is a ScrapeBadger adapter. Keys rotate round-robin per request.
type Client struct {
	keys    *keypool.Pool
	baseURL string
	http    *http.Client
}

func New(keys *keypool.Pool) *Client {
	return &Client{
		keys:    keys,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Name() string { return "scrapebadger" }

func (c *Client) Available() bool { return c.keys != nil && !c.keys.Empty() }

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	key := c.keys.Next()
	if key == "" {
		return nil, fmt.Errorf("scrapebadger: no api key configured")
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrapebadger %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("scrapebadger %s: read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scrapebadger %s: HTTP %d: %s", path, resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

// rawTweet covers both shapes the service returns: flattened fields from
// search, or the legacy nesting from timeline-style endpoints.
type rawTweet struct {
	ID            string `json:"id"`
	IDStr         string `json:"id_str"`
	Text          string `json:"text"`
	FullText      string `json:"full_text"`
	CreatedAt     string `json:"created_at"`
	RetweetCount  int    `json:"retweet_count"`
	FavoriteCount int    `json:"favorite_count"`
	LikeCount     int    `json:"like_count"`
	ReplyCount    int    `json:"reply_count"`
	ViewCount     int    `json:"view_count"`
	InReplyTo     string `json:"in_reply_to_status_id_str"`
	Legacy        *struct {
		IDStr         string `json:"id_str"`
		FullText      string `json:"full_text"`
		CreatedAt     string `json:"created_at"`
		RetweetCount  int    `json:"retweet_count"`
		FavoriteCount int    `json:"favorite_count"`
		ReplyCount    int    `json:"reply_count"`
		InReplyTo     string `json:"in_reply_to_status_id_str"`
	} `json:"legacy"`
}

func (t rawTweet) toPost() provider.Post {
	p := provider.Post{}
	if t.Legacy != nil && t.Text == "" && t.FullText == "" {
		l := t.Legacy
		p.ID = l.IDStr
		p.Text = l.FullText
		p.Retweets = l.RetweetCount
		p.Likes = l.FavoriteCount
		p.Replies = l.ReplyCount
		p.IsReply = l.InReplyTo != ""
		if ts, err := time.Parse(createdAtLayout, l.CreatedAt); err == nil {
			p.CreatedAt = ts
		}
		return p
	}

	p.ID = t.IDStr
	if p.ID == "" {
		p.ID = t.ID
	}
	p.Text = t.FullText
	if p.Text == "" {
		p.Text = t.Text
	}
	p.Retweets = t.RetweetCount
	p.Likes = t.FavoriteCount
	if p.Likes == 0 {
		p.Likes = t.LikeCount
	}
	p.Replies = t.ReplyCount
	p.Views = t.ViewCount
	p.IsReply = t.InReplyTo != ""
	if ts, err := time.Parse(createdAtLayout, t.CreatedAt); err == nil {
		p.CreatedAt = ts
	}
	return p
}

type rawUser struct {
	Username       string `json:"username"`
	ScreenName     string `json:"screen_name"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Verified       bool   `json:"verified"`
	IsBlueVerified bool   `json:"is_blue_verified"`
	FollowersCount int    `json:"followers_count"`
	FriendsCount   int    `json:"friends_count"`
	Location       string `json:"location"`
	CreatedAt      string `json:"created_at"`
	RestID         string `json:"rest_id"`
	Legacy         *struct {
		ScreenName     string `json:"screen_name"`
		Name           string `json:"name"`
		Description    string `json:"description"`
		FollowersCount int    `json:"followers_count"`
		FriendsCount   int    `json:"friends_count"`
		Location       string `json:"location"`
		CreatedAt      string `json:"created_at"`
	} `json:"legacy"`
}

func (u rawUser) toProfile() provider.Profile {
	p := provider.Profile{UserID: u.RestID}
	if u.Legacy != nil {
		l := u.Legacy
		p.Handle = l.ScreenName
		p.DisplayName = l.Name
		p.Bio = l.Description
		p.Followers = l.FollowersCount
		p.Following = l.FriendsCount
		p.Location = l.Location
		p.Verified = u.IsBlueVerified
		if ts, err := time.Parse(createdAtLayout, l.CreatedAt); err == nil {
			p.CreatedAt = ts
		}
		return p
	}

	p.Handle = u.Username
	if p.Handle == "" {
		p.Handle = u.ScreenName
	}
	p.DisplayName = u.Name
	p.Bio = u.Description
	p.Verified = u.IsBlueVerified || u.Verified
	p.Followers = u.FollowersCount
	p.Following = u.FriendsCount
	p.Location = u.Location
	if ts, err := time.Parse(createdAtLayout, u.CreatedAt); err == nil {
		p.CreatedAt = ts
	}
	return p
}

// Profile fetches one user by username. The endpoint wraps the result in the
// raw GraphQL nesting.
func (c *Client) Profile(ctx context.Context, h string) (*provider.Profile, provider.Outcome) {
	body, err := c.get(ctx, "/twitter/users/by-username/"+url.PathEscape(h), nil)
	if err != nil {
		return nil, provider.Fail(err)
	}
	p, err := parseProfile(body)
	if err != nil {
		return nil, provider.Fail(err)
	}
	if p == nil {
		return nil, provider.Short("no user result")
	}
	return p, provider.OK()
}

func parseProfile(body []byte) (*provider.Profile, error) {
	var raw struct {
		Data struct {
			UserResult struct {
				Result *struct {
					RestID         string `json:"rest_id"`
					IsBlueVerified bool   `json:"is_blue_verified"`
					Legacy         struct {
						ScreenName     string `json:"screen_name"`
						Name           string `json:"name"`
						Description    string `json:"description"`
						FollowersCount int    `json:"followers_count"`
						FriendsCount   int    `json:"friends_count"`
						Location       string `json:"location"`
						CreatedAt      string `json:"created_at"`
					} `json:"legacy"`
				} `json:"result"`
			} `json:"user_result"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal user result: %w", err)
	}
	r := raw.Data.UserResult.Result
	if r == nil {
		return nil, nil
	}
	p := provider.Profile{
		UserID:      r.RestID,
		Handle:      r.Legacy.ScreenName,
		DisplayName: r.Legacy.Name,
		Bio:         r.Legacy.Description,
		Verified:    r.IsBlueVerified,
		Followers:   r.Legacy.FollowersCount,
		Following:   r.Legacy.FriendsCount,
		Location:    r.Legacy.Location,
	}
	if ts, err := time.Parse(createdAtLayout, r.Legacy.CreatedAt); err == nil {
		p.CreatedAt = ts
	}
	return &p, nil
}

// Posts fetches recent posts via search. A "from:handle" query is more
// reliable on this service than the user-timeline endpoint.
func (c *Client) Posts(ctx context.Context, h string, limit int) ([]provider.Post, provider.Outcome) {
	params := url.Values{
		"query":     {"from:" + h},
		"max_items": {fmt.Sprint(limit)},
	}
	body, err := c.get(ctx, "/twitter/tweets/search", params)
	if err != nil {
		return nil, provider.Fail(err)
	}
	posts, err := parseTweets(body)
	if err != nil {
		return nil, provider.Fail(err)
	}
	if len(posts) == 0 {
		return nil, provider.Short("search returned no tweets")
	}
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, provider.OK()
}

func parseTweets(body []byte) ([]provider.Post, error) {
	var raw struct {
		Items []rawTweet `json:"items"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal tweets: %w", err)
	}
	posts := make([]provider.Post, 0, len(raw.Items))
	for _, t := range raw.Items {
		posts = append(posts, t.toPost())
	}
	return posts, nil
}

// Followings fetches the accounts h follows.
func (c *Client) Followings(ctx context.Context, h string, limit int) ([]provider.Profile, provider.Outcome) {
	params := url.Values{"max_items": {fmt.Sprint(limit)}}
	body, err := c.get(ctx, "/twitter/users/"+url.PathEscape(h)+"/following", params)
	if err != nil {
		return nil, provider.Fail(err)
	}
	users, err := parseUsers(body)
	if err != nil {
		return nil, provider.Fail(err)
	}
	if len(users) == 0 {
		return nil, provider.Short("empty followings list")
	}
	if len(users) > limit {
		users = users[:limit]
	}
	return users, provider.OK()
}

func parseUsers(body []byte) ([]provider.Profile, error) {
	var raw struct {
		Items []rawUser `json:"items"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal users: %w", err)
	}
	users := make([]provider.Profile, 0, len(raw.Items))
	for _, u := range raw.Items {
		users = append(users, u.toProfile())
	}
	return users, nil
}

// Highlights fetches the pinned/highlighted tweets for a numeric user ID.
func (c *Client) Highlights(ctx context.Context, userID string) ([]provider.Post, error) {
	params := url.Values{"max_items": {fmt.Sprint(maxHighlights)}}
	body, err := c.get(ctx, "/twitter/users/"+url.PathEscape(userID)+"/highlights", params)
	if err != nil {
		return nil, err
	}
	return parseTweets(body)
}

// EnrichedProfile combines profile, highlights, and recent posts for one
// account. Each section is best-effort: a failed section is logged and left
// empty rather than failing the whole fetch.
func (c *Client) EnrichedProfile(ctx context.Context, h string, maxPosts int) (*provider.Enriched, error) {
	if !c.Available() {
		return nil, fmt.Errorf("scrapebadger: no api key configured")
	}
	out := &provider.Enriched{}

	if p, oc := c.Profile(ctx, h); oc.Status == provider.Success {
		out.Profile = p
	} else {
		slog.Warn("enriched profile: profile section failed",
			slog.String("handle", h), slog.String("outcome", oc.Describe()))
	}

	if out.Profile != nil && out.Profile.UserID != "" {
		highlights, err := c.Highlights(ctx, out.Profile.UserID)
		if err != nil {
			slog.Warn("enriched profile: highlights section failed",
				slog.String("handle", h), slog.Any("error", err))
		} else {
			out.Highlights = highlights
		}
	}

	if posts, oc := c.Posts(ctx, h, maxPosts); oc.Status == provider.Success {
		out.Posts = posts
	} else {
		slog.Warn("enriched profile: posts section failed",
			slog.String("handle", h), slog.String("outcome", oc.Describe()))
	}

	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
