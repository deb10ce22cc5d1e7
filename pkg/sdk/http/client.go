// Package http is the resty-based transport shared by the degiro client. It
// never retries: every call maps to exactly one HTTP exchange.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (compatible; degiro-go)"
)

type Client struct {
	client    *resty.Client
	log       logrus.FieldLogger
	userAgent string
	debug     bool
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.SetTimeout(d)
		}
	}
}

// WithHTTPClient swaps the underlying *http.Client, keeping resty settings.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc == nil {
			return
		}
		timeout := c.client.GetClient().Timeout
		c.client = resty.NewWithClient(hc).SetTimeout(timeout)
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithDebug logs every exchange at debug level.
func WithDebug(on bool) Option {
	return func(c *Client) { c.debug = on }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a transport. Proxy settings are read from the
// environment by the default transport.
func NewClient(opts ...Option) *Client {
	c := &Client{
		client:    resty.New().SetTimeout(DefaultTimeout),
		log:       logrus.StandardLogger(),
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.client.SetRetryCount(0)
	// the session cookie is managed by the caller, never by a jar
	c.client.SetCookieJar(nil)
	return c
}

// RequestOptions describes one exchange. Data is JSON encoded unless it is
// already a string or []byte.
type RequestOptions struct {
	Headers map[string]string
	Cookies map[string]string
	Params  url.Values
	Data    any
}

// Response is the raw result of an exchange. Non-2xx statuses are not errors
// at this layer.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Cookies    []*http.Cookie
	Body       []byte
}

func (r *Response) IsSuccess() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Cookie returns the named Set-Cookie value, if present.
func (r *Response) Cookie(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, ck := range r.Cookies {
		if ck.Name == name && ck.Value != "" {
			return ck.Value, true
		}
	}
	return "", false
}

func (c *Client) newRequest(ctx context.Context) *resty.Request {
	r := c.client.R()
	if ctx != nil {
		r.SetContext(ctx)
	}
	r.SetHeader("Accept", "application/json, text/plain, */*")
	r.SetHeader("User-Agent", c.userAgent)
	return r
}

// Do performs a single request against an absolute endpoint URL.
func (c *Client) Do(ctx context.Context, method, endpoint string, opt *RequestOptions) (*Response, error) {
	rc := c.newRequest(ctx)
	if opt != nil {
		for k, v := range opt.Headers {
			rc.SetHeader(k, v)
		}
		for k, v := range opt.Cookies {
			rc.SetCookie(&http.Cookie{Name: k, Value: v})
		}
		if len(opt.Params) > 0 {
			rc.SetQueryParamsFromValues(opt.Params)
		}
		if opt.Data != nil {
			rc.SetHeader("Content-Type", "application/json;charset=UTF-8")
			switch b := opt.Data.(type) {
			case string:
				rc.SetBody(b)
			case []byte:
				rc.SetBody(b)
			default:
				raw, err := json.Marshal(b)
				if err != nil {
					return nil, errors.Wrap(err, "encode request body")
				}
				rc.SetBody(raw)
			}
		}
	}

	start := time.Now()
	var (
		resp *resty.Response
		err  error
	)
	switch strings.ToUpper(method) {
	case http.MethodGet:
		resp, err = rc.Get(endpoint)
	case http.MethodPost:
		resp, err = rc.Post(endpoint)
	case http.MethodDelete:
		resp, err = rc.Delete(endpoint)
	case http.MethodPut:
		resp, err = rc.Put(endpoint)
	default:
		return nil, fmt.Errorf("unsupported method: %s", method)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, redact(endpoint))
	}

	out := &Response{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Header:     resp.Header(),
		Cookies:    resp.Cookies(),
		Body:       resp.Body(),
	}
	if c.debug {
		c.log.WithFields(logrus.Fields{
			"method":   method,
			"url":      redact(endpoint),
			"status":   out.StatusCode,
			"bytes":    len(out.Body),
			"duration": time.Since(start).Round(time.Millisecond),
		}).Debug("degiro http exchange")
	}
	return out, nil
}

// redact hides the session id embedded in trading paths.
func redact(endpoint string) string {
	i := strings.Index(endpoint, ";jsessionid=")
	if i < 0 {
		return endpoint
	}
	rest := endpoint[i+len(";jsessionid="):]
	if j := strings.IndexAny(rest, "?/"); j >= 0 {
		return endpoint[:i] + ";jsessionid=***" + rest[j:]
	}
	return endpoint[:i] + ";jsessionid=***"
}
