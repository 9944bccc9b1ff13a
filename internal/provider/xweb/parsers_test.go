package xweb

import "testing"

func TestParseUserByScreenName(t *testing.T) {
	body := `{
		"data": {
			"user": {
				"result": {
					"__typename": "User",
					"rest_id": "12345",
					"legacy": {
						"name": "Test User",
						"screen_name": "testuser",
						"followers_count": 100,
						"friends_count": 50,
						"created_at": "Mon Jan 02 15:04:05 +0000 2020",
						"verified": false,
						"description": "  Hello world  ",
						"location": "Berlin"
					},
					"is_blue_verified": true
				}
			}
		}
	}`

	p, err := parseUserByScreenName([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if p.UserID != "12345" {
		t.Fatalf("expected ID 12345, got %s", p.UserID)
	}
	if p.Handle != "testuser" {
		t.Fatalf("expected handle testuser, got %s", p.Handle)
	}
	if p.Bio != "Hello world" {
		t.Fatalf("expected trimmed bio, got %q", p.Bio)
	}
	if p.Followers != 100 {
		t.Fatalf("expected 100 followers, got %d", p.Followers)
	}
	if !p.Verified {
		t.Fatal("expected verified (blue)")
	}
	if p.Location != "Berlin" {
		t.Fatalf("expected location Berlin, got %q", p.Location)
	}
}

func TestParseUserByScreenName_Unavailable(t *testing.T) {
	body := `{
		"data": {
			"user": {
				"result": {
					"__typename": "UserUnavailable",
					"rest_id": ""
				}
			}
		}
	}`

	if _, err := parseUserByScreenName([]byte(body)); err == nil {
		t.Fatal("expected error for unavailable user")
	}
}

func TestParseUserList(t *testing.T) {
	body := `{
		"data": {
			"user": {
				"result": {
					"timeline": {
						"timeline": {
							"instructions": [{
								"type": "TimelineAddEntries",
								"entries": [
									{
										"entryId": "user-1",
										"content": {
											"entryType": "TimelineTimelineItem",
											"itemContent": {
												"__typename": "TimelineUser",
												"user_results": {
													"result": {
														"__typename": "User",
														"rest_id": "111",
														"legacy": {
															"screen_name": "alice",
															"name": "Alice",
															"description": "she/her"
														},
														"is_blue_verified": true
													}
												}
											}
										}
									},
									{
										"entryId": "cursor-bottom-0",
										"content": {
											"entryType": "TimelineTimelineCursor",
											"cursorType": "Bottom",
											"value": "next-page-token"
										}
									}
								]
							}]
						}
					}
				}
			}
		}
	}`

	users, cursor, err := parseUserList([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0].Handle != "alice" {
		t.Fatalf("expected handle alice, got %s", users[0].Handle)
	}
	if !users[0].Verified {
		t.Fatal("expected verified")
	}
	if cursor != "next-page-token" {
		t.Fatalf("expected bottom cursor, got %q", cursor)
	}
}

func TestParseTweetTimeline(t *testing.T) {
	body := `{
		"data": {
			"user": {
				"result": {
					"timeline_v2": {
						"timeline": {
							"instructions": [{
								"type": "TimelineAddEntries",
								"entries": [{
									"entryId": "tweet-123",
									"content": {
										"entryType": "TimelineTimelineItem",
										"itemContent": {
											"__typename": "TimelineTweet",
											"tweet_results": {
												"result": {
													"__typename": "Tweet",
													"rest_id": "123",
													"legacy": {
														"full_text": "hello world",
														"created_at": "Mon Jan 02 15:04:05 +0000 2024",
														"favorite_count": 10,
														"retweet_count": 5,
														"reply_count": 2,
														"in_reply_to_status_id_str": "122"
													},
													"views": {"count": "1000"}
												}
											}
										}
									}
								}]
							}]
						}
					}
				}
			}
		}
	}`

	posts, err := parseTweetTimeline([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	p := posts[0]
	if p.ID != "123" {
		t.Fatalf("expected ID 123, got %s", p.ID)
	}
	if p.Text != "hello world" {
		t.Fatalf("unexpected text %q", p.Text)
	}
	if p.Views != 1000 {
		t.Fatalf("expected 1000 views, got %d", p.Views)
	}
	if p.Likes != 10 {
		t.Fatalf("expected 10 likes, got %d", p.Likes)
	}
	if !p.IsReply {
		t.Fatal("expected reply flag")
	}
}

func TestGenerateCT0(t *testing.T) {
	ct0 := generateCT0()
	if len(ct0) != 64 {
		t.Fatalf("expected 64 char hex, got %d chars", len(ct0))
	}
	if ct0 == generateCT0() {
		t.Fatal("expected different ct0 values")
	}
}

func TestParseAccounts(t *testing.T) {
	accounts := ParseAccounts("u1:p1, u2:p2:tok:csrf:TOTPSECRET ,bad")
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	if accounts[0].Username != "u1" || accounts[0].AuthToken != "" {
		t.Fatalf("unexpected first account %+v", accounts[0])
	}
	if accounts[1].AuthToken != "tok" || accounts[1].CT0 != "csrf" || accounts[1].TOTPSecret != "TOTPSECRET" {
		t.Fatalf("unexpected second account %+v", accounts[1])
	}
}
