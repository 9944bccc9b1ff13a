package xweb

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"skillnet/internal/provider"
)

const legacyTimeLayout = "Mon Jan 02 15:04:05 +0000 2006"

// parseUserByScreenName parses the UserByScreenName GraphQL response.
func parseUserByScreenName(body []byte) (*provider.Profile, error) {
	var raw struct {
		Data struct {
			User struct {
				Result userResult `json:"result"`
			} `json:"user"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal UserByScreenName: %w", err)
	}
	if len(raw.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", raw.Errors[0].Message)
	}
	return parseUserResult(raw.Data.User.Result)
}

// parseUserList parses the Following timeline response.
func parseUserList(body []byte) ([]provider.Profile, string, error) {
	var raw struct {
		Data struct {
			User struct {
				Result struct {
					Timeline struct {
						Timeline timelineObj `json:"timeline"`
					} `json:"timeline"`
				} `json:"result"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, "", fmt.Errorf("unmarshal user list: %w", err)
	}
	return extractUsersFromTimeline(raw.Data.User.Result.Timeline.Timeline)
}

// parseTweetTimeline parses the UserTweets timeline response.
func parseTweetTimeline(body []byte) ([]provider.Post, error) {
	var raw struct {
		Data struct {
			User struct {
				Result struct {
					Timeline struct {
						Timeline timelineObj `json:"timeline"`
					} `json:"timeline"`
					TimelineV2 struct {
						Timeline timelineObj `json:"timeline"`
					} `json:"timeline_v2"`
				} `json:"result"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal tweet timeline: %w", err)
	}
	tl := raw.Data.User.Result.Timeline.Timeline
	if len(tl.Instructions) == 0 {
		tl = raw.Data.User.Result.TimelineV2.Timeline
	}
	return extractTweetsFromTimeline(tl)
}

// --- Timeline types ---

type timelineObj struct {
	Instructions []timelineInstruction `json:"instructions"`
}

type timelineInstruction struct {
	Type    string          `json:"type"`
	Entries []timelineEntry `json:"entries"`
	Entry   *timelineEntry  `json:"entry"`
}

type timelineEntry struct {
	EntryID   string          `json:"entryId"`
	SortIndex string          `json:"sortIndex"`
	Content   timelineContent `json:"content"`
}

type timelineContent struct {
	EntryType   string          `json:"entryType"`
	TypeName    string          `json:"__typename"`
	ItemContent json.RawMessage `json:"itemContent"`
	Value       string          `json:"value"`
	CursorType  string          `json:"cursorType"`
}

type userResult struct {
	TypeName string `json:"__typename"`
	RestID   string `json:"rest_id"`
	Legacy   struct {
		Name           string `json:"name"`
		ScreenName     string `json:"screen_name"`
		FollowersCount int    `json:"followers_count"`
		FriendsCount   int    `json:"friends_count"`
		CreatedAt      string `json:"created_at"`
		Verified       bool   `json:"verified"`
		Description    string `json:"description"`
		Location       string `json:"location"`
	} `json:"legacy"`
	IsBlueVerified bool `json:"is_blue_verified"`
}

type tweetResult struct {
	TypeName string `json:"__typename"`
	RestID   string `json:"rest_id"`
	Legacy   struct {
		FullText      string `json:"full_text"`
		CreatedAt     string `json:"created_at"`
		FavoriteCount int    `json:"favorite_count"`
		RetweetCount  int    `json:"retweet_count"`
		ReplyCount    int    `json:"reply_count"`
		InReplyTo     string `json:"in_reply_to_status_id_str"`
	} `json:"legacy"`
	Views struct {
		Count string `json:"count"`
	} `json:"views"`
}

// --- Extraction helpers ---

func extractUsersFromTimeline(tl timelineObj) ([]provider.Profile, string, error) {
	var users []provider.Profile
	var nextCursor string

	for _, instruction := range tl.Instructions {
		entries := instruction.Entries
		if instruction.Entry != nil {
			entries = append(entries, *instruction.Entry)
		}
		for _, entry := range entries {
			if entry.Content.EntryType == "TimelineTimelineCursor" || entry.Content.TypeName == "TimelineTimelineCursor" {
				if entry.Content.CursorType == "Bottom" || strings.Contains(entry.EntryID, "cursor-bottom") {
					nextCursor = entry.Content.Value
				}
				continue
			}
			if entry.Content.ItemContent == nil {
				continue
			}
			var item struct {
				TypeName    string `json:"__typename"`
				UserResults struct {
					Result userResult `json:"result"`
				} `json:"user_results"`
			}
			if err := json.Unmarshal(entry.Content.ItemContent, &item); err != nil {
				continue
			}
			if item.TypeName != "TimelineUser" {
				continue
			}
			u, err := parseUserResult(item.UserResults.Result)
			if err != nil {
				slog.Debug("skip user parse error", slog.Any("error", err))
				continue
			}
			users = append(users, *u)
		}
	}
	return users, nextCursor, nil
}

func extractTweetsFromTimeline(tl timelineObj) ([]provider.Post, error) {
	var posts []provider.Post

	for _, instruction := range tl.Instructions {
		for _, entry := range instruction.Entries {
			if entry.Content.ItemContent == nil {
				continue
			}
			var item struct {
				TypeName     string `json:"__typename"`
				TweetResults struct {
					Result tweetResult `json:"result"`
				} `json:"tweet_results"`
			}
			if err := json.Unmarshal(entry.Content.ItemContent, &item); err != nil {
				continue
			}
			if item.TypeName != "TimelineTweet" {
				continue
			}
			p, err := parseTweetResult(item.TweetResults.Result)
			if err != nil {
				slog.Debug("skip tweet parse error", slog.Any("error", err))
				continue
			}
			posts = append(posts, *p)
		}
	}
	return posts, nil
}

func parseUserResult(r userResult) (*provider.Profile, error) {
	if r.TypeName == "UserUnavailable" {
		return nil, fmt.Errorf("user unavailable (suspended or restricted)")
	}
	if r.RestID == "" {
		return nil, fmt.Errorf("empty user rest_id (typename=%s)", r.TypeName)
	}
	var createdAt time.Time
	if r.Legacy.CreatedAt != "" {
		if t, err := time.Parse(legacyTimeLayout, r.Legacy.CreatedAt); err == nil {
			createdAt = t
		}
	}
	return &provider.Profile{
		UserID:      r.RestID,
		Handle:      r.Legacy.ScreenName,
		DisplayName: r.Legacy.Name,
		Bio:         strings.TrimSpace(r.Legacy.Description),
		Verified:    r.Legacy.Verified || r.IsBlueVerified,
		Followers:   r.Legacy.FollowersCount,
		Following:   r.Legacy.FriendsCount,
		Location:    r.Legacy.Location,
		CreatedAt:   createdAt,
	}, nil
}

func parseTweetResult(r tweetResult) (*provider.Post, error) {
	if r.RestID == "" {
		return nil, fmt.Errorf("empty tweet rest_id")
	}

	var createdAt time.Time
	if r.Legacy.CreatedAt != "" {
		if t, err := time.Parse(legacyTimeLayout, r.Legacy.CreatedAt); err == nil {
			createdAt = t
		}
	}

	views := 0
	if r.Views.Count != "" {
		views, _ = strconv.Atoi(r.Views.Count)
	}

	return &provider.Post{
		ID:        r.RestID,
		Text:      r.Legacy.FullText,
		CreatedAt: createdAt,
		Likes:     r.Legacy.FavoriteCount,
		Retweets:  r.Legacy.RetweetCount,
		Replies:   r.Legacy.ReplyCount,
		Views:     views,
		IsReply:   r.Legacy.InReplyTo != "",
	}, nil
}
