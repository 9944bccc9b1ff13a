package badger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfileNestedResult(t *testing.T) {
	body := []byte(`{
		"data": {
			"user_result": {
				"result": {
					"rest_id": "44196397",
					"is_blue_verified": true,
					"legacy": {
						"screen_name": "somebody",
						"name": "Some Body",
						"description": "building things",
						"followers_count": 1234,
						"friends_count": 56,
						"location": "Austin",
						"created_at": "Tue Jun 02 20:12:29 +0000 2009"
					}
				}
			}
		}
	}`)

	p, err := parseProfile(body)
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, "44196397", p.UserID)
	assert.Equal(t, "somebody", p.Handle)
	assert.True(t, p.Verified)
	assert.Equal(t, 1234, p.Followers)
	assert.Equal(t, 56, p.Following)
	assert.Equal(t, 2009, p.CreatedAt.Year())
}

func TestParseProfileMissingResult(t *testing.T) {
	p, err := parseProfile([]byte(`{"data": {"user_result": {}}}`))
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestTweetNormalizationFlattened(t *testing.T) {
	posts, err := parseTweets([]byte(`{
		"items": [
			{
				"id_str": "2001",
				"full_text": "flattened shape",
				"created_at": "Mon Jan 02 15:04:05 +0000 2023",
				"retweet_count": 4,
				"favorite_count": 12,
				"reply_count": 1,
				"view_count": 300,
				"in_reply_to_status_id_str": "1999"
			}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, posts, 1)

	p := posts[0]
	assert.Equal(t, "2001", p.ID)
	assert.Equal(t, "flattened shape", p.Text)
	assert.Equal(t, 12, p.Likes)
	assert.Equal(t, 300, p.Views)
	assert.True(t, p.IsReply)
}

func TestTweetNormalizationLegacyNested(t *testing.T) {
	posts, err := parseTweets([]byte(`{
		"items": [
			{
				"legacy": {
					"id_str": "3001",
					"full_text": "legacy shape",
					"created_at": "Mon Jan 02 15:04:05 +0000 2023",
					"retweet_count": 2,
					"favorite_count": 8,
					"reply_count": 0
				}
			}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, posts, 1)

	p := posts[0]
	assert.Equal(t, "3001", p.ID)
	assert.Equal(t, "legacy shape", p.Text)
	assert.Equal(t, 8, p.Likes)
	assert.False(t, p.IsReply)
}

func TestUserNormalizationBothShapes(t *testing.T) {
	users, err := parseUsers([]byte(`{
		"items": [
			{
				"is_blue_verified": true,
				"legacy": {
					"screen_name": "nested_user",
					"name": "Nested",
					"description": "raw shape",
					"followers_count": 10
				}
			},
			{
				"username": "flat_user",
				"name": "Flat",
				"description": "sdk shape",
				"verified": true,
				"followers_count": 20
			}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Equal(t, "nested_user", users[0].Handle)
	assert.True(t, users[0].Verified)
	assert.Equal(t, 10, users[0].Followers)

	assert.Equal(t, "flat_user", users[1].Handle)
	assert.True(t, users[1].Verified)
	assert.Equal(t, 20, users[1].Followers)
}
