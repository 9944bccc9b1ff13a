package xweb

import (
	"context"
	"fmt"

	"skillnet/internal/provider"
)

// UserByHandle fetches a user profile by handle.
func (c *Client) UserByHandle(ctx context.Context, handle string) (*provider.Profile, error) {
	variables := map[string]any{
		"screen_name":              handle,
		"withSafetyModeUserFields": true,
	}
	url, err := endpointURL("UserByScreenName")
	if err != nil {
		return nil, err
	}
	url = addGraphQLParams(url, variables, endpoints["UserByScreenName"].Features)

	body, _, err := c.doGET(ctx, "UserByScreenName", url)
	if err != nil {
		return nil, fmt.Errorf("UserByScreenName: %w", err)
	}
	return parseUserByScreenName(body)
}

// FollowingOf fetches accounts a user follows, paginated up to maxCount.
func (c *Client) FollowingOf(ctx context.Context, userID string, maxCount int) ([]provider.Profile, error) {
	var users []provider.Profile
	var cursor string

	for {
		select {
		case <-ctx.Done():
			return users, ctx.Err()
		default:
		}

		variables := map[string]any{
			"userId":                 userID,
			"count":                  min(100, maxCount-len(users)),
			"includePromotedContent": false,
		}
		if cursor != "" {
			variables["cursor"] = cursor
		}

		url, err := endpointURL("Following")
		if err != nil {
			return users, err
		}
		url = addGraphQLParams(url, variables, endpoints["Following"].Features)

		body, _, err := c.doGET(ctx, "Following", url)
		if err != nil {
			return users, fmt.Errorf("Following: %w", err)
		}

		batch, nextCursor, err := parseUserList(body)
		if err != nil {
			return users, fmt.Errorf("parse Following: %w", err)
		}
		users = append(users, batch...)

		if nextCursor == "" || len(batch) == 0 || len(users) >= maxCount {
			break
		}
		cursor = nextCursor
	}
	return users, nil
}

// TweetsOf fetches recent tweets for a user.
func (c *Client) TweetsOf(ctx context.Context, userID string, count int) ([]provider.Post, error) {
	variables := map[string]any{
		"userId":                                 userID,
		"count":                                  count,
		"includePromotedContent":                 false,
		"withQuickPromoteEligibilityTweetFields": true,
		"withVoice":                              true,
		"withV2Timeline":                         true,
	}
	url, err := endpointURL("UserTweets")
	if err != nil {
		return nil, err
	}
	url = addGraphQLParams(url, variables, endpoints["UserTweets"].Features)

	body, _, err := c.doGET(ctx, "UserTweets", url)
	if err != nil {
		return nil, fmt.Errorf("UserTweets: %w", err)
	}
	return parseTweetTimeline(body)
}
