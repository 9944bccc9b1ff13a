package provider

import "time"

// Profile represents a canonical social account profile. Adapters normalize
// their provider's raw response shape into this struct; fields a provider
// cannot supply stay zero.
type Profile struct {
	UserID      string
	Handle      string
	DisplayName string
	Bio         string
	Verified    bool
	Followers   int
	Following   int
	Location    string
	CreatedAt   time.Time
}

// Post represents a single canonical content item (post/tweet).
type Post struct {
	ID        string
	Text      string
	CreatedAt time.Time
	Likes     int
	Retweets  int
	Replies   int
	Views     int
	IsReply   bool
}

// Enriched bundles everything a single provider can tell us about one
// account: profile, pinned highlights, and recent posts. Sections are
// best-effort; a missing section is nil/empty, not an error.
type Enriched struct {
	Profile    *Profile
	Highlights []Post
	Posts      []Post
}

// TotalText returns the concatenated length of all post texts. The cascade's
// posts sufficiency check is expressed in terms of this.
func TotalText(posts []Post) int {
	n := 0
	for _, p := range posts {
		n += len(p.Text)
	}
	return n
}
