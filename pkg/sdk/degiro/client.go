package degiro

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/betbot/degiro/pkg/cache"
	"github.com/betbot/degiro/pkg/ratelimit"
	sdkhttp "github.com/betbot/degiro/pkg/sdk/http"
)

const defaultProductTTL = 30 * time.Minute

// Credentials used by Login.
type Credentials struct {
	Username        string
	Password        string
	OneTimePassword string
}

// SessionStore persists a bootstrapped session between processes. Load
// returns (nil, nil) when nothing is stored.
type SessionStore interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// OrderHook observes the order pipeline. Hook errors are logged and never
// fail the order call.
type OrderHook interface {
	OrderChecked(ctx context.Context, o CheckedOrder) error
	OrderPlaced(ctx context.Context, o PlacedOrder) error
	OrderDeleted(ctx context.Context, orderID string) error
}

// Client talks to the DEGIRO web trader. It is safe for concurrent use once
// bootstrapped; Login, Resume and Logout replace the session atomically.
type Client struct {
	http         *sdkhttp.Client
	httpOpts     []sdkhttp.Option
	log          logrus.FieldLogger
	baseURL      string
	quotecastURL string
	creds        Credentials
	strictQuotes bool
	debug        bool

	limiter  *ratelimit.Manager
	store    SessionStore
	products cache.Cache[string, Product]
	hook     OrderHook
	now      func() time.Time

	mu      sync.RWMutex
	session Session
}

type Option func(*Client)

func WithCredentials(username, password string) Option {
	return func(c *Client) {
		c.creds.Username = username
		c.creds.Password = password
	}
}

// WithOneTimePassword switches Login to the TOTP endpoint.
func WithOneTimePassword(otp string) Option {
	return func(c *Client) { c.creds.OneTimePassword = otp }
}

// WithSessionID seeds an existing JSESSIONID for Resume.
func WithSessionID(id string) Option {
	return func(c *Client) { c.session.ID = id }
}

// WithAccount seeds the intAccount. GetClientInfo overwrites it.
func WithAccount(account int64) Option {
	return func(c *Client) { c.session.Account = account }
}

func WithDebug(on bool) Option {
	return func(c *Client) { c.debug = on }
}

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithQuotecastURL pins the quotecast host; otherwise the session's
// vwdQuotecastServiceUrl or DefaultQuotecastURL is used.
func WithQuotecastURL(u string) Option {
	return func(c *Client) { c.quotecastURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpOpts = append(c.httpOpts, sdkhttp.WithHTTPClient(hc)) }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpOpts = append(c.httpOpts, sdkhttp.WithTimeout(d)) }
}

// WithStrictQuotes makes GetAskBidPrice fail when a requested field is
// missing from the poll.
func WithStrictQuotes(strict bool) Option {
	return func(c *Client) { c.strictQuotes = strict }
}

// WithRateLimiter throttles requests per endpoint class. nil disables it.
func WithRateLimiter(m *ratelimit.Manager) Option {
	return func(c *Client) { c.limiter = m }
}

func WithSessionStore(s SessionStore) Option {
	return func(c *Client) { c.store = s }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithOrderHook(h OrderHook) Option {
	return func(c *Client) { c.hook = h }
}

// WithProductCache replaces the default in-memory product cache. nil
// disables caching.
func WithProductCache(pc cache.Cache[string, Product]) Option {
	return func(c *Client) { c.products = pc }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		log:      logrus.StandardLogger(),
		baseURL:  DefaultBaseURL,
		limiter:  ratelimit.NewManager(),
		products: cache.NewInMemoryCache[string, Product](defaultProductTTL, 0),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	httpOpts := append([]sdkhttp.Option{sdkhttp.WithLogger(c.log), sdkhttp.WithDebug(c.debug)}, c.httpOpts...)
	c.http = sdkhttp.NewClient(httpOpts...)
	return c
}

// Session returns a copy of the current session.
func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.session
	if s.ClientInfo != nil {
		ci := *s.ClientInfo
		s.ClientInfo = &ci
	}
	return s
}

func (c *Client) setSession(fn func(s *Session)) {
	c.mu.Lock()
	fn(&c.session)
	c.mu.Unlock()
}

// requireSession returns the session or an AuthenticationError when the
// bootstrap has not completed.
func (c *Client) requireSession() (Session, error) {
	s := c.Session()
	if s.ID == "" {
		return s, &AuthenticationError{Message: "no session, call Login or Resume first"}
	}
	return s, nil
}

// requireURL checks that the config bootstrap filled the routing URL.
func requireURL(op, name, u string) error {
	if u == "" {
		return &AuthenticationError{Message: op + ": " + name + " unknown, call Login or Resume first"}
	}
	return nil
}

func (c *Client) quotecastBase() string {
	if c.quotecastURL != "" {
		return c.quotecastURL
	}
	if u := c.Session().URLs.VwdQuotecastServiceURL; u != "" {
		return strings.TrimRight(u, "/")
	}
	return DefaultQuotecastURL
}
