package twitterapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfile(t *testing.T) {
	body := []byte(`{
		"status": "success",
		"data": {
			"id": "12",
			"userName": "jack",
			"name": "jack",
			"description": "#bitcoin",
			"followers": 6500000,
			"following": 400,
			"isBlueVerified": true,
			"location": "everywhere",
			"createdAt": "Tue Mar 21 20:50:14 +0000 2006"
		}
	}`)

	p, err := parseProfile(body)
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, "12", p.UserID)
	assert.Equal(t, "jack", p.Handle)
	assert.Equal(t, "#bitcoin", p.Bio)
	assert.Equal(t, 6500000, p.Followers)
	assert.True(t, p.Verified)
	assert.Equal(t, 2006, p.CreatedAt.Year())
}

func TestParseProfileErrorEnvelope(t *testing.T) {
	_, err := parseProfile([]byte(`{"status":"error","msg":"user not found"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user not found")
}

func TestParseProfileMissingData(t *testing.T) {
	p, err := parseProfile([]byte(`{"status":"success"}`))
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestParseTweetPage(t *testing.T) {
	body := []byte(`{
		"status": "success",
		"tweets": [
			{
				"id": "1001",
				"text": "gm",
				"createdAt": "Mon Jan 02 15:04:05 +0000 2023",
				"likeCount": 42,
				"retweetCount": 7,
				"replyCount": 3,
				"viewCount": 9000,
				"isReply": false
			},
			{"id": "1002", "text": "second", "isReply": true}
		],
		"has_next_page": true,
		"next_cursor": "abc123"
	}`)

	tweets, cursor, hasNext, err := parseTweetPage(body)
	require.NoError(t, err)
	require.Len(t, tweets, 2)

	first := tweets[0].toPost()
	assert.Equal(t, "1001", first.ID)
	assert.Equal(t, "gm", first.Text)
	assert.Equal(t, 42, first.Likes)
	assert.Equal(t, 9000, first.Views)
	assert.False(t, first.IsReply)
	assert.Equal(t, 2023, first.CreatedAt.Year())

	assert.True(t, tweets[1].toPost().IsReply)
	assert.True(t, hasNext)
	assert.Equal(t, "abc123", cursor)
}

func TestParseTweetPageBadJSON(t *testing.T) {
	_, _, _, err := parseTweetPage([]byte(`{"status": "success", "tweets": [`))
	assert.Error(t, err)
}

func TestParseFollowingsPage(t *testing.T) {
	body := []byte(`{
		"status": "success",
		"followings": [
			{"userName": "alice", "name": "Alice", "isBlueVerified": true, "description": "she/her"},
			{"userName": "bob", "name": "Bob"}
		],
		"has_next_page": false
	}`)

	users, _, hasNext, err := parseFollowingsPage(body)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.False(t, hasNext)

	alice := users[0].toProfile()
	assert.Equal(t, "alice", alice.Handle)
	assert.True(t, alice.Verified)
	assert.Equal(t, "she/her", alice.Bio)
	assert.False(t, users[1].toProfile().Verified)
}
