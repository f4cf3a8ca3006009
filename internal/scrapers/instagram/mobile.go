package instagram

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

// the app identity the lightweight json endpoint expects. versions drift
// but old ones keep working for a long time.
const mobileUserAgent = "Instagram 275.0.0.27.98 Android (33/13; 420dpi; 1080x2400; samsung; SM-G991B; o1s; exynos2100; en_US)"

// MobileClient issues direct requests against the mobile api host with an
// app identity instead of a browser one. no cookies, no login.
type MobileClient struct {
	BaseUrl *url.URL
	Http    *resty.Client
}

type MobileClientOptions struct {
	// defaults to https://i.instagram.com
	BaseUrl string
}

func NewMobileClient(opts MobileClientOptions) (*MobileClient, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = "https://i.instagram.com"
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetHeader("user-agent", mobileUserAgent)
	client.SetHeader("x-ig-app-id", webAppId)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 15)

	instrumentHttp(client, "gramwatch.scrapers.instagram.mobile_http")

	c := &MobileClient{
		BaseUrl: baseUrl,
		Http:    client,
	}
	return c, nil
}

// Profile fetches the user object from the mobile host. anything that is
// not json with a recognizable user object is a parse error, per the
// endpoint's habit of returning challenge pages with a 200.
func (c *MobileClient) Profile(ctx context.Context, handle string) (*WebProfileUser, error) {
	ctx, span := tracer.Start(ctx, "mobile:Profile")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("username", handle).
		Get("/api/v1/users/web_profile_info/")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch mobile profile")
		return nil, upstreamErr(ReasonNetworkError, "mobile_profile", err)
	}
	if serr := classifyStatus(res.StatusCode(), "mobile_profile"); serr != nil {
		span.SetStatus(codes.Error, serr.Error())
		return nil, serr
	}
	if !strings.Contains(res.Header().Get("content-type"), "json") {
		span.SetStatus(codes.Error, "response is not json")
		return nil, upstreamErr(ReasonParseError, "mobile_profile", nil)
	}

	var reply webProfileResponse
	err = json.Unmarshal(res.Body(), &reply)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse mobile profile json")
		return nil, upstreamErr(ReasonParseError, "mobile_profile", err)
	}
	if reply.Data.User == nil || reply.Data.User.Username == "" {
		span.SetStatus(codes.Error, "no recognizable user object")
		return nil, upstreamErr(ReasonParseError, "mobile_profile", nil)
	}

	return reply.Data.User, nil
}
