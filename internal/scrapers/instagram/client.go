// client.go holds the web session client: the surface shared by the
// authenticated and anonymous strategies. it speaks the browser dialect
// of instagram.com (csrf cookie dance, web_profile_info endpoint).

package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"gramwatch-backend/lib/jsonfile"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const webAppId = "936619743392459"

var LoginFailed = fmt.Errorf("failed to login to the session account")

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
}

type ClientOptions struct {
	// defaults to https://www.instagram.com
	BaseUrl string
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = "https://www.instagram.com"
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", RandomUserAgent())
	client.SetHeader("x-ig-app-id", webAppId)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 15)

	// 1 request per second keeps the session surface well under the
	// thresholds that trip checkpoint challenges
	rateLimiter := rate.NewLimiter(1, 2)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	instrumentHttp(client, "gramwatch.scrapers.instagram.http")

	c := &Client{
		BaseUrl: baseUrl,
		Http:    client,
	}
	return c, nil
}

func (c *Client) csrfToken() string {
	for _, cookie := range c.Http.GetClient().Jar.Cookies(c.BaseUrl) {
		if cookie.Name == "csrftoken" {
			return cookie.Value
		}
	}
	return ""
}

// LoggedIn reports whether the cookie jar carries an upstream session.
func (c *Client) LoggedIn() bool {
	for _, cookie := range c.Http.GetClient().Jar.Cookies(c.BaseUrl) {
		if cookie.Name == "sessionid" && cookie.Value != "" {
			return true
		}
	}
	return false
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	_, err := c.Http.R().
		SetContext(ctx).
		Get("/accounts/login/")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch login page")
		return upstreamErr(ReasonNetworkError, "login", err)
	}

	token := c.csrfToken()
	if token == "" {
		span.SetStatus(codes.Error, "failed to find csrf token")
		return upstreamErr(ReasonParseError, "login", fmt.Errorf("no csrftoken cookie after login page"))
	}

	encPassword := fmt.Sprintf(
		"#PWD_INSTAGRAM_BROWSER:0:%d:%s",
		time.Now().Unix(), password,
	)
	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("x-csrftoken", token).
		SetHeader("x-requested-with", "XMLHttpRequest").
		SetFormData(map[string]string{
			"username":     username,
			"enc_password": encPassword,
		}).
		Post("/accounts/login/ajax/")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return upstreamErr(ReasonNetworkError, "login", err)
	}

	var reply struct {
		Authenticated bool   `json:"authenticated"`
		User          bool   `json:"user"`
		Status        string `json:"status"`
	}
	err = json.Unmarshal(res.Body(), &reply)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse login reply")
		return upstreamErr(ReasonParseError, "login", err)
	}
	if !reply.Authenticated {
		span.SetStatus(codes.Error, LoginFailed.Error())
		return upstreamErr(ReasonAuthRequired, "login", LoginFailed)
	}

	return nil
}

// WebProfile fetches the user object from the web_profile_info endpoint.
// a 200 that comes back as html instead of json is the login wall.
func (c *Client) WebProfile(ctx context.Context, handle string) (*WebProfileUser, error) {
	ctx, span := tracer.Start(ctx, "client:WebProfile")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("username", handle).
		Get("/api/v1/users/web_profile_info/")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch web profile")
		return nil, upstreamErr(ReasonNetworkError, "web_profile_info", err)
	}
	if serr := classifyStatus(res.StatusCode(), "web_profile_info"); serr != nil {
		span.SetStatus(codes.Error, serr.Error())
		return nil, serr
	}
	if strings.Contains(res.Header().Get("content-type"), "text/html") {
		span.SetStatus(codes.Error, "got login wall instead of json")
		return nil, upstreamErr(ReasonAuthRequired, "web_profile_info", nil)
	}

	var reply webProfileResponse
	err = json.Unmarshal(res.Body(), &reply)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse web profile json")
		return nil, upstreamErr(ReasonParseError, "web_profile_info", err)
	}
	if reply.Data.User == nil {
		span.SetStatus(codes.Error, "no user object in response")
		return nil, upstreamErr(ReasonNotFound, "web_profile_info", nil)
	}

	return reply.Data.User, nil
}

type sessionCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SaveSession persists the current cookie jar so a later process can skip
// the login flow. callers must not invoke this in ephemeral environments.
func (c *Client) SaveSession(path string) error {
	var cookies []sessionCookie
	for _, cookie := range c.Http.GetClient().Jar.Cookies(c.BaseUrl) {
		cookies = append(cookies, sessionCookie{Name: cookie.Name, Value: cookie.Value})
	}
	return jsonfile.WriteAtomic(path, cookies)
}

// LoadSession restores a previously saved cookie jar. a missing file
// surfaces as os.ErrNotExist.
func (c *Client) LoadSession(path string) error {
	var cookies []sessionCookie
	err := jsonfile.Read(path, &cookies)
	if err != nil {
		return err
	}

	restored := make([]*http.Cookie, 0, len(cookies))
	for _, cookie := range cookies {
		restored = append(restored, &http.Cookie{
			Name:   cookie.Name,
			Value:  cookie.Value,
			Domain: c.BaseUrl.Hostname(),
			Path:   "/",
		})
	}
	c.Http.GetClient().Jar.SetCookies(c.BaseUrl, restored)
	return nil
}
