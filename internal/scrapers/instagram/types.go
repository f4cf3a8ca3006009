package instagram

// count objects show up all over the graphql payloads as {"count": N}
type edgeCount struct {
	Count int64 `json:"count"`
}

type mediaNode struct {
	TakenAtTimestamp   int64     `json:"taken_at_timestamp"`
	EdgeLikedBy        edgeCount `json:"edge_liked_by"`
	EdgeMediaPreview   edgeCount `json:"edge_media_preview_like"`
	EdgeMediaToComment edgeCount `json:"edge_media_to_comment"`
}

type mediaEdges struct {
	Count int64 `json:"count"`
	Edges []struct {
		Node mediaNode `json:"node"`
	} `json:"edges"`
}

// WebProfileUser is the user object of the web_profile_info endpoint, shared
// by the session (authenticated/anonymous) and mobile surfaces. it is the
// raw upstream shape; the monitor package adapts it to its own model.
type WebProfileUser struct {
	Username          string     `json:"username"`
	FullName          string     `json:"full_name"`
	Biography         string     `json:"biography"`
	ExternalUrl       string     `json:"external_url"`
	IsPrivate         bool       `json:"is_private"`
	IsVerified        bool       `json:"is_verified"`
	ProfilePicUrl     string     `json:"profile_pic_url"`
	ProfilePicUrlHd   string     `json:"profile_pic_url_hd"`
	EdgeFollowedBy    edgeCount  `json:"edge_followed_by"`
	EdgeFollow        edgeCount  `json:"edge_follow"`
	EdgeTimelineMedia mediaEdges `json:"edge_owner_to_timeline_media"`
}

// RecentPost is one recent media node flattened out of the timeline edges.
type RecentPost struct {
	TakenAt  int64
	Likes    int64
	Comments int64
}

func (u WebProfileUser) RecentPosts() []RecentPost {
	var posts []RecentPost
	for _, edge := range u.EdgeTimelineMedia.Edges {
		likes := edge.Node.EdgeLikedBy.Count
		if likes == 0 {
			likes = edge.Node.EdgeMediaPreview.Count
		}
		posts = append(posts, RecentPost{
			TakenAt:  edge.Node.TakenAtTimestamp,
			Likes:    likes,
			Comments: edge.Node.EdgeMediaToComment.Count,
		})
	}
	return posts
}

type webProfileResponse struct {
	Data struct {
		User *WebProfileUser `json:"user"`
	} `json:"data"`
	Status string `json:"status"`
}

// MarkupProfile is what the profile page markup yields. depending on which
// pattern matched, any subset of the fields may be populated; Username is
// always set by the caller.
type MarkupProfile struct {
	Username        string
	FullName        string
	Biography       string
	Followers       int64
	Following       int64
	Posts           int64
	IsPrivate       bool
	IsVerified      bool
	ProfilePicUrl   string
	ProfilePicUrlHd string
}

// EmbedProfile is the Open-Graph projection of the public embed page.
// it is the poorest surface: counts only, no privacy flag.
type EmbedProfile struct {
	Username  string
	FullName  string
	Followers int64
	Following int64
	Posts     int64
	ImageUrl  string
}

// EmbedPost is the Open-Graph projection of a single post's embed page.
type EmbedPost struct {
	Shortcode string
	Author    string
	Caption   string
	ImageUrl  string
}
