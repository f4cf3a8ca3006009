package monitor

import (
	"fmt"
	"strings"
	"time"

	"gramwatch-backend/internal/scrapers/instagram"
)

// acquisition method tags, richest surface first. Fallback marks the
// degraded placeholder produced when every strategy failed.
const (
	MethodAuthenticated = "authenticated_api"
	MethodAnonymous     = "anonymous_api"
	MethodMobile        = "mobile_api"
	MethodWebScraping   = "web_scraping"
	MethodEmbed         = "embed"
	MethodFallback      = "fallback"
)

var ErrInvalidHandle = fmt.Errorf("invalid handle")

// NormalizeHandle canonicalizes a user-supplied handle: strips the leading
// @, trims surrounding whitespace and lowercases. an empty result is
// ErrInvalidHandle.
func NormalizeHandle(raw string) (string, error) {
	handle := strings.TrimSpace(raw)
	handle = strings.TrimPrefix(handle, "@")
	handle = strings.TrimSpace(handle)
	handle = strings.ToLower(handle)
	if handle == "" {
		return "", ErrInvalidHandle
	}
	return handle, nil
}

// Snapshot is the canonical, strategy-agnostic representation of one
// observation of a profile. it is immutable once the engine returns it.
type Snapshot struct {
	Username        string     `json:"username"`
	FullName        string     `json:"full_name"`
	Biography       string     `json:"bio"`
	Followers       int64      `json:"followers"`
	Following       int64      `json:"following"`
	Posts           int64      `json:"posts"`
	IsPrivate       bool       `json:"is_private"`
	IsVerified      bool       `json:"is_verified"`
	ProfilePicUrl   string     `json:"profile_pic_url,omitempty"`
	ProfilePicUrlHd string     `json:"profile_pic_url_hd,omitempty"`
	ExternalUrl     string     `json:"external_url,omitempty"`
	Method          string     `json:"method"`
	ObservedAt      time.Time  `json:"timestamp"`
	ProfileUrl      string     `json:"profile_url,omitempty"`
	LastPostAt      *time.Time `json:"last_post_at,omitempty"`
	EngagementRate  float64    `json:"engagement_rate,omitempty"`
	// set only when Method == MethodFallback
	Error string `json:"error,omitempty"`

	// recent media carried along for the engine to derive post fields
	// from; never serialized
	recentPosts []instagram.RecentPost
}

// PictureUrl is the image the picture tracker should archive: the hd
// variant when the surface carried one, the standard one otherwise.
func (s Snapshot) PictureUrl() string {
	if s.ProfilePicUrlHd != "" {
		return s.ProfilePicUrlHd
	}
	return s.ProfilePicUrl
}

// Degraded reports whether this snapshot is the placeholder produced when
// no strategy could reach the upstream. consumers must treat its numbers
// as unknown, not as zero.
func (s Snapshot) Degraded() bool {
	return s.Method == MethodFallback
}

// FallbackSnapshot builds the deterministic degraded snapshot: all counts
// zero, private by convention, error set.
func FallbackSnapshot(handle string, observedAt time.Time) Snapshot {
	return Snapshot{
		Username:   handle,
		FullName:   handle,
		IsPrivate:  true,
		Method:     MethodFallback,
		ObservedAt: observedAt,
		ProfileUrl: "https://instagram.com/" + handle,
		Error:      "unable to access profile data",
	}
}

// one adapter per upstream response shape (the session and mobile
// strategies share the web_profile_info shape).

func snapshotFromWebProfile(handle string, user *instagram.WebProfileUser) Snapshot {
	fullName := user.FullName
	if fullName == "" {
		fullName = user.Username
	}
	return Snapshot{
		Username:        handle,
		FullName:        fullName,
		Biography:       user.Biography,
		Followers:       user.EdgeFollowedBy.Count,
		Following:       user.EdgeFollow.Count,
		Posts:           user.EdgeTimelineMedia.Count,
		IsPrivate:       user.IsPrivate,
		IsVerified:      user.IsVerified,
		ProfilePicUrl:   instagram.FixupUrl(user.ProfilePicUrl),
		ProfilePicUrlHd: instagram.FixupUrl(user.ProfilePicUrlHd),
		ExternalUrl:     user.ExternalUrl,
		recentPosts:     user.RecentPosts(),
	}
}

func snapshotFromMarkup(profile *instagram.MarkupProfile) Snapshot {
	fullName := profile.FullName
	if fullName == "" {
		fullName = profile.Username
	}
	return Snapshot{
		Username:        profile.Username,
		FullName:        fullName,
		Biography:       profile.Biography,
		Followers:       profile.Followers,
		Following:       profile.Following,
		Posts:           profile.Posts,
		IsPrivate:       profile.IsPrivate,
		IsVerified:      profile.IsVerified,
		ProfilePicUrl:   profile.ProfilePicUrl,
		ProfilePicUrlHd: profile.ProfilePicUrlHd,
	}
}

func snapshotFromEmbed(profile *instagram.EmbedProfile) Snapshot {
	fullName := profile.FullName
	if fullName == "" {
		fullName = profile.Username
	}
	return Snapshot{
		Username:      profile.Username,
		FullName:      fullName,
		Followers:     profile.Followers,
		Following:     profile.Following,
		Posts:         profile.Posts,
		ProfilePicUrl: profile.ImageUrl,
	}
}
