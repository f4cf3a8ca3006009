// embed.go parses the public embed pages through their Open-Graph meta
// tags. this is the poorest surface upstream offers but it has also been
// the most stable one across markup rewrites.

package instagram

import (
	"bytes"
	"context"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"gramwatch-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

// ProfileEmbed fetches and parses /<handle>/embed/.
func (c *PageClient) ProfileEmbed(ctx context.Context, handle string) (*EmbedProfile, error) {
	ctx, span := tracer.Start(ctx, "page:ProfileEmbed")
	defer span.End()

	err := c.jitter(ctx)
	if err != nil {
		return nil, upstreamErr(ReasonNetworkError, "profile_embed", err)
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("user-agent", RandomUserAgent()).
		Get("/" + url.PathEscape(handle) + "/embed/")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch profile embed")
		return nil, upstreamErr(ReasonNetworkError, "profile_embed", err)
	}
	if serr := classifyStatus(res.StatusCode(), "profile_embed"); serr != nil {
		span.SetStatus(codes.Error, serr.Error())
		return nil, serr
	}

	return ParseProfileEmbed(ctx, handle, res.String())
}

// PostEmbed fetches and parses /p/<shortcode>/embed/. post and media
// detail only, it never yields a full profile.
func (c *PageClient) PostEmbed(ctx context.Context, shortcode string) (*EmbedPost, error) {
	ctx, span := tracer.Start(ctx, "page:PostEmbed")
	defer span.End()

	err := c.jitter(ctx)
	if err != nil {
		return nil, upstreamErr(ReasonNetworkError, "post_embed", err)
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("user-agent", RandomUserAgent()).
		Get("/p/" + url.PathEscape(shortcode) + "/embed/")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch post embed")
		return nil, upstreamErr(ReasonNetworkError, "post_embed", err)
	}
	if serr := classifyStatus(res.StatusCode(), "post_embed"); serr != nil {
		span.SetStatus(codes.Error, serr.Error())
		return nil, serr
	}

	return ParsePostEmbed(ctx, shortcode, res.String())
}

var embedCountsRegex = regexp.MustCompile(
	`([\d.,]+[KMB]?)\s+Followers?,\s*([\d.,]+[KMB]?)\s+Following,\s*([\d.,]+[KMB]?)\s+Posts?`,
)
var embedTitleRegex = regexp.MustCompile(`^(.*?)\s*\(@([A-Za-z0-9._]+)\)`)

// parseAbbrevCount reads the grouped ("1,234") and abbreviated ("10.5K",
// "1.2M") count renderings the embed page uses.
func parseAbbrevCount(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	multiplier := float64(1)
	switch s[len(s)-1] {
	case 'K':
		multiplier = 1e3
		s = s[:len(s)-1]
	case 'M':
		multiplier = 1e6
		s = s[:len(s)-1]
	case 'B':
		multiplier = 1e9
		s = s[:len(s)-1]
	}

	s = strings.ReplaceAll(s, ",", "")
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int64(math.Round(n * multiplier)), true
}

// ParseProfileEmbed extracts the og card of a profile embed page.
func ParseProfileEmbed(ctx context.Context, handle, html string) (*EmbedProfile, error) {
	ctx, span := tracer.Start(ctx, "ParseProfileEmbed")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(html))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse embed html")
		return nil, upstreamErr(ReasonParseError, "profile_embed", err)
	}
	meta := htmlutil.GetMetaProperties(ctx, doc)

	description := meta["og:description"]
	if description == "" {
		description = meta["description"]
	}
	groups := embedCountsRegex.FindStringSubmatch(description)
	if len(groups) < 4 {
		span.SetStatus(codes.Error, "no follower counts in og description")
		return nil, upstreamErr(ReasonParseError, "profile_embed", nil)
	}

	profile := &EmbedProfile{
		Username: handle,
		ImageUrl: FixupUrl(meta["og:image"]),
	}
	if n, ok := parseAbbrevCount(groups[1]); ok {
		profile.Followers = n
	}
	if n, ok := parseAbbrevCount(groups[2]); ok {
		profile.Following = n
	}
	if n, ok := parseAbbrevCount(groups[3]); ok {
		profile.Posts = n
	}

	if title := embedTitleRegex.FindStringSubmatch(meta["og:title"]); len(title) >= 3 {
		profile.FullName = htmlutil.NormalizeText(title[1])
		profile.Username = strings.ToLower(title[2])
	}

	return profile, nil
}

// ParsePostEmbed extracts the og card of a post embed page.
func ParsePostEmbed(ctx context.Context, shortcode, html string) (*EmbedPost, error) {
	ctx, span := tracer.Start(ctx, "ParsePostEmbed")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(html))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse embed html")
		return nil, upstreamErr(ReasonParseError, "post_embed", err)
	}
	meta := htmlutil.GetMetaProperties(ctx, doc)

	post := &EmbedPost{
		Shortcode: shortcode,
		Caption:   meta["og:description"],
		ImageUrl:  FixupUrl(meta["og:image"]),
	}
	if title := embedTitleRegex.FindStringSubmatch(meta["og:title"]); len(title) >= 3 {
		post.Author = strings.ToLower(title[2])
	}
	if post.Caption == "" && post.ImageUrl == "" && post.Author == "" {
		span.SetStatus(codes.Error, "no og tags on post embed page")
		return nil, upstreamErr(ReasonParseError, "post_embed", nil)
	}

	return post, nil
}
