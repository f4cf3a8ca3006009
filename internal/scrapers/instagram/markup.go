// markup.go scrapes the public profile page html. the upstream markup
// changes without warning, so extraction is layered: known embedded data
// blobs first, bare regexes over the page as a last resort. pattern
// breakage here is an expected failure mode, not a crash.

package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gramwatch-backend/lib/htmlutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel/codes"
)

type PageClient struct {
	BaseUrl *url.URL
	Http    *resty.Client

	jitterMin time.Duration
	jitterMax time.Duration
}

type PageClientOptions struct {
	// defaults to https://www.instagram.com
	BaseUrl string
	// total attempts per request, defaults to 5
	RetryCount int
	// initial retry backoff, defaults to 2s (doubles up to 32s)
	RetryWaitTime time.Duration
	// randomized pre-request delay window, defaults to 3s..8s.
	// JitterMax == 0 disables the delay entirely (tests).
	JitterMin time.Duration
	JitterMax time.Duration

	disableJitterDefaults bool
}

func NewPageClient(opts PageClientOptions) (*PageClient, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = "https://www.instagram.com"
	}
	if opts.RetryCount == 0 {
		opts.RetryCount = 5
	}
	if opts.RetryWaitTime == 0 {
		opts.RetryWaitTime = time.Second * 2
	}
	if opts.JitterMax == 0 && !opts.disableJitterDefaults {
		opts.JitterMin = time.Second * 3
		opts.JitterMax = time.Second * 8
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeaders(map[string]string{
		"accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"accept-language":           "en-US,en;q=0.5",
		"dnt":                       "1",
		"upgrade-insecure-requests": "1",
		"sec-fetch-dest":            "document",
		"sec-fetch-mode":            "navigate",
		"sec-fetch-site":            "none",
	})
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 20)

	client.SetRetryCount(opts.RetryCount - 1)
	client.SetRetryWaitTime(opts.RetryWaitTime)
	client.SetRetryMaxWaitTime(time.Second * 32)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		if res == nil {
			return false
		}
		return res.StatusCode() == 429 || res.StatusCode() >= 500
	})

	instrumentHttp(client, "gramwatch.scrapers.instagram.page_http")

	c := &PageClient{
		BaseUrl:   baseUrl,
		Http:      client,
		jitterMin: opts.JitterMin,
		jitterMax: opts.JitterMax,
	}
	return c, nil
}

// sleeps a random interval inside the jitter window so repeated runs do
// not hit the upstream on a metronome.
func (c *PageClient) jitter(ctx context.Context) error {
	if c.jitterMax <= c.jitterMin {
		return nil
	}
	ms, err := random.IntRange(
		int(c.jitterMin.Milliseconds()),
		int(c.jitterMax.Milliseconds()),
	)
	if err != nil {
		ms = int(c.jitterMin.Milliseconds())
	}

	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProfilePage fetches the raw public profile page html for a handle,
// rotating the browser identity on every call.
func (c *PageClient) ProfilePage(ctx context.Context, handle string) (string, error) {
	ctx, span := tracer.Start(ctx, "page:ProfilePage")
	defer span.End()

	err := c.jitter(ctx)
	if err != nil {
		return "", upstreamErr(ReasonNetworkError, "profile_page", err)
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("user-agent", RandomUserAgent()).
		Get("/" + url.PathEscape(handle) + "/")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch profile page")
		return "", upstreamErr(ReasonNetworkError, "profile_page", err)
	}
	if serr := classifyStatus(res.StatusCode(), "profile_page"); serr != nil {
		span.SetStatus(codes.Error, serr.Error())
		return "", serr
	}

	return res.String(), nil
}

var sharedDataRegex = regexp.MustCompile(`(?s)window\._sharedData\s*=\s*(\{.*?\});</script>`)

// field regexes pinned to the shapes the page has actually shipped over
// time. they survive markup rewrites because the hydration payload keeps
// its graphql key names.
var markupFieldRegexes = map[string]*regexp.Regexp{
	"followers":          regexp.MustCompile(`"edge_followed_by":\{"count":(\d+)\}`),
	"following":          regexp.MustCompile(`"edge_follow":\{"count":(\d+)\}`),
	"posts":              regexp.MustCompile(`"edge_owner_to_timeline_media":\{"count":(\d+)`),
	"full_name":          regexp.MustCompile(`"full_name":"([^"]*)"`),
	"biography":          regexp.MustCompile(`"biography":"([^"]*)"`),
	"is_private":         regexp.MustCompile(`"is_private":(true|false)`),
	"is_verified":        regexp.MustCompile(`"is_verified":(true|false)`),
	"profile_pic_url":    regexp.MustCompile(`"profile_pic_url":"([^"]*)"`),
	"profile_pic_url_hd": regexp.MustCompile(`"profile_pic_url_hd":"([^"]*)"`),
}

// decodeJsonValue undoes the escaping of values lifted out of embedded
// json with regexes instead of a real parser.
func decodeJsonValue(s string) string {
	s = strings.ReplaceAll(s, `\/`, `/`)
	s = strings.ReplaceAll(s, `\u0026`, `&`)
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\"`, `"`)
	return s
}

// FixupUrl repairs protocol-relative and schemeless urls the upstream
// emits in some payload revisions.
func FixupUrl(u string) string {
	if u == "" || strings.HasPrefix(u, "http") {
		return u
	}
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return "https://" + u
}

type sharedData struct {
	EntryData struct {
		ProfilePage []struct {
			Graphql struct {
				User *WebProfileUser `json:"user"`
			} `json:"graphql"`
		} `json:"ProfilePage"`
	} `json:"entry_data"`
}

func extractSharedData(html string) *WebProfileUser {
	groups := sharedDataRegex.FindStringSubmatch(html)
	if len(groups) < 2 {
		return nil
	}
	var data sharedData
	err := json.Unmarshal([]byte(groups[1]), &data)
	if err != nil {
		return nil
	}
	if len(data.EntryData.ProfilePage) == 0 {
		return nil
	}
	return data.EntryData.ProfilePage[0].Graphql.User
}

// the graphql payload is inlined mid-script with no terminator regexes
// can anchor on, so decode exactly one balanced json value from the key's
// offset instead.
func extractInlineGraphql(html string) *WebProfileUser {
	const marker = `"graphql":`
	idx := strings.Index(html, marker)
	if idx < 0 {
		return nil
	}
	var data struct {
		User *WebProfileUser `json:"user"`
	}
	dec := json.NewDecoder(strings.NewReader(html[idx+len(marker):]))
	err := dec.Decode(&data)
	if err != nil {
		return nil
	}
	return data.User
}

type jsonLdProfile struct {
	Type          string `json:"@type"`
	Name          string `json:"name"`
	AlternateName string `json:"alternateName"`
	Description   string `json:"description"`
	Image         string `json:"image"`
}

func extractJsonLd(ctx context.Context, html string) *jsonLdProfile {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(html))
	if err != nil {
		return nil
	}
	for _, script := range doc.Find(`script[type="application/ld+json"]`).Nodes {
		var ld jsonLdProfile
		err := json.Unmarshal([]byte(htmlutil.GetText(script)), &ld)
		if err != nil {
			continue
		}
		if ld.Type == "ProfilePage" || ld.Type == "Person" {
			return &ld
		}
	}
	return nil
}

func markupFromUser(handle string, user *WebProfileUser) *MarkupProfile {
	return &MarkupProfile{
		Username:        handle,
		FullName:        user.FullName,
		Biography:       user.Biography,
		Followers:       user.EdgeFollowedBy.Count,
		Following:       user.EdgeFollow.Count,
		Posts:           user.EdgeTimelineMedia.Count,
		IsPrivate:       user.IsPrivate,
		IsVerified:      user.IsVerified,
		ProfilePicUrl:   FixupUrl(user.ProfilePicUrl),
		ProfilePicUrlHd: FixupUrl(user.ProfilePicUrlHd),
	}
}

// ExtractProfile pulls profile fields out of page html. it tries the
// historically-observed structured blobs in order, then falls back to
// field-by-field regex extraction. a page matching none of the patterns
// is a parse error.
func ExtractProfile(ctx context.Context, handle, html string) (*MarkupProfile, error) {
	ctx, span := tracer.Start(ctx, "ExtractProfile")
	defer span.End()

	if user := extractSharedData(html); user != nil {
		span.AddEvent("matched shared data blob")
		return markupFromUser(handle, user), nil
	}
	if user := extractInlineGraphql(html); user != nil {
		span.AddEvent("matched inline graphql payload")
		return markupFromUser(handle, user), nil
	}

	profile := &MarkupProfile{Username: handle}
	matched := false
	for field, pattern := range markupFieldRegexes {
		groups := pattern.FindStringSubmatch(html)
		if len(groups) < 2 {
			continue
		}
		matched = true
		value := groups[1]

		switch field {
		case "followers", "following", "posts":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				continue
			}
			switch field {
			case "followers":
				profile.Followers = n
			case "following":
				profile.Following = n
			case "posts":
				profile.Posts = n
			}
		case "is_private":
			profile.IsPrivate = value == "true"
		case "is_verified":
			profile.IsVerified = value == "true"
		case "profile_pic_url":
			profile.ProfilePicUrl = FixupUrl(decodeJsonValue(value))
		case "profile_pic_url_hd":
			profile.ProfilePicUrlHd = FixupUrl(decodeJsonValue(value))
		case "full_name":
			profile.FullName = decodeJsonValue(value)
		case "biography":
			profile.Biography = decodeJsonValue(value)
		}
	}

	// json-ld carries no counts but can still fill in text fields the
	// regexes missed
	if ld := extractJsonLd(ctx, html); ld != nil {
		matched = true
		if profile.FullName == "" {
			profile.FullName = ld.Name
		}
		if profile.Biography == "" {
			profile.Biography = ld.Description
		}
		if profile.ProfilePicUrl == "" {
			profile.ProfilePicUrl = FixupUrl(ld.Image)
		}
	}

	if !matched {
		span.SetStatus(codes.Error, "no known pattern matched the page")
		return nil, upstreamErr(ReasonParseError, "extract_profile", nil)
	}
	return profile, nil
}
