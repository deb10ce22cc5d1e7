package degiro

import (
	"context"
	"net/http"
	"net/url"

	"github.com/buger/jsonparser"
	"github.com/sirupsen/logrus"

	"github.com/betbot/degiro/pkg/ratelimit"
)

type loginRequest struct {
	Username           string         `json:"username"`
	Password           string         `json:"password"`
	IsPassCodeReset    bool           `json:"isPassCodeReset"`
	IsRedirectToMobile bool           `json:"isRedirectToMobile"`
	QueryParams        map[string]any `json:"queryParams"`
	OneTimePassword    string         `json:"oneTimePassword,omitempty"`
}

// Login authenticates with the configured credentials and runs the
// config and client-info bootstrap. The returned session is also kept by
// the client and handed to the session store, if any.
func (c *Client) Login(ctx context.Context) (Session, error) {
	const op = "login"
	if c.creds.Username == "" || c.creds.Password == "" {
		return Session{}, &AuthenticationError{Message: "username and password are required"}
	}
	path := pathLogin
	if c.creds.OneTimePassword != "" {
		path = pathLoginTOTP
	}
	resp, err := c.send(ctx, call{
		op:     op,
		class:  ratelimit.ClassLogin,
		method: http.MethodPost,
		url:    c.baseURL + path,
		body: loginRequest{
			Username:        c.creds.Username,
			Password:        c.creds.Password,
			QueryParams:     map[string]any{},
			OneTimePassword: c.creds.OneTimePassword,
		},
	})
	if err != nil {
		return Session{}, err
	}

	status, _ := jsonparser.GetInt(resp.Body, "status")
	statusText, _ := jsonparser.GetString(resp.Body, "statusText")
	if !resp.IsSuccess() || status != 0 {
		return Session{}, &AuthenticationError{Status: int(status), StatusText: statusText, Message: vendorMessage(resp.Body)}
	}
	sid, ok := resp.Cookie(sessionCookie)
	if !ok {
		return Session{}, &AuthenticationError{Status: int(status), StatusText: statusText, Message: "no session cookie in login response"}
	}

	prev := c.Session()
	c.setSession(func(s *Session) {
		*s = Session{ID: sid, StartedAt: c.now()}
	})
	c.log.WithField("path", path).Debug("degiro login accepted")
	return c.bootstrapOrRestore(ctx, prev)
}

// Resume bootstraps from a session id seeded with WithSessionID, or from
// the session store when none was given.
func (c *Client) Resume(ctx context.Context) (Session, error) {
	prev := c.Session()
	if prev.ID == "" && c.store != nil {
		stored, err := c.store.Load(ctx)
		if err != nil {
			return Session{}, err
		}
		if stored != nil {
			c.setSession(func(s *Session) { *s = *stored })
		}
	}
	if c.Session().ID == "" {
		return Session{}, &AuthenticationError{Message: "no session id to resume"}
	}
	return c.bootstrapOrRestore(ctx, prev)
}

// LoginOrResume reuses a stored or seeded session and falls back to a fresh
// login when it is missing or rejected.
func (c *Client) LoginOrResume(ctx context.Context) (Session, error) {
	s, err := c.Resume(ctx)
	if err == nil {
		return s, nil
	}
	c.log.WithError(err).Info("degiro session not resumable, logging in")
	c.setSession(func(s *Session) { *s = Session{} })
	return c.Login(ctx)
}

// bootstrapOrRestore puts prev back when the bootstrap of a new session
// fails, so a half-initialized session never replaces a working one.
func (c *Client) bootstrapOrRestore(ctx context.Context, prev Session) (Session, error) {
	s, err := c.bootstrap(ctx)
	if err != nil {
		c.setSession(func(s *Session) { *s = prev })
		return Session{}, err
	}
	return s, nil
}

func (c *Client) bootstrap(ctx context.Context) (Session, error) {
	if _, err := c.UpdateConfig(ctx); err != nil {
		return Session{}, err
	}
	if _, err := c.GetClientInfo(ctx); err != nil {
		return Session{}, err
	}
	s := c.Session()
	if c.store != nil {
		if err := c.store.Save(ctx, s); err != nil {
			c.log.WithError(err).Warn("degiro session not persisted")
		}
	}
	c.log.WithFields(logrus.Fields{"account": s.Account}).Info("degiro session ready")
	return s, nil
}

// UpdateConfig fetches the routing URLs for the current session.
func (c *Client) UpdateConfig(ctx context.Context) (URLs, error) {
	const op = "config"
	s, err := c.requireSession()
	if err != nil {
		return URLs{}, err
	}
	body, err := c.do(ctx, call{
		op:     op,
		class:  ratelimit.ClassLogin,
		method: http.MethodGet,
		url:    c.baseURL + pathConfig,
		cookie: s.ID,
	})
	if err != nil {
		return URLs{}, err
	}
	data, err := expect(op, body, jsonparser.Object, "data")
	if err != nil {
		return URLs{}, err
	}
	var urls URLs
	if err := decode(op, body, data, &urls); err != nil {
		return URLs{}, err
	}
	if urls.PaURL == "" || urls.TradingURL == "" {
		return URLs{}, &DataShapeError{Op: op, What: "missing paUrl or tradingUrl", Payload: body}
	}
	c.setSession(func(s *Session) { s.URLs = urls })
	return urls, nil
}

// GetClientInfo fetches the client blob and stores the account and the
// quotecast user token taken from it.
func (c *Client) GetClientInfo(ctx context.Context) (*ClientInfo, error) {
	const op = "client info"
	s, err := c.requireSession()
	if err != nil {
		return nil, err
	}
	if err := requireURL(op, "paUrl", s.URLs.PaURL); err != nil {
		return nil, err
	}
	body, err := c.do(ctx, call{
		op:     op,
		class:  ratelimit.ClassAccount,
		method: http.MethodGet,
		url:    s.URLs.PaURL + pathClient,
		params: url.Values{"sessionId": {s.ID}},
		cookie: s.ID,
	})
	if err != nil {
		return nil, err
	}
	data, err := expect(op, body, jsonparser.Object, "data")
	if err != nil {
		return nil, err
	}
	info := &ClientInfo{}
	if err := decode(op, body, data, info); err != nil {
		return nil, err
	}
	if info.IntAccount == 0 {
		return nil, &DataShapeError{Op: op, What: "missing data.intAccount", Payload: body}
	}
	info.Raw = append(info.Raw[:0], data...)
	c.setSession(func(s *Session) {
		s.Account = info.IntAccount
		s.UserToken = info.ID
		s.ClientInfo = info
	})
	out := *info
	return &out, nil
}

// Logout ends the vendor session and clears local and stored state. The
// local state is cleared even when the vendor call fails.
func (c *Client) Logout(ctx context.Context) error {
	s, err := c.requireSession()
	if err != nil {
		return err
	}
	_, callErr := c.do(ctx, call{
		op:     "logout",
		class:  ratelimit.ClassLogin,
		method: http.MethodGet,
		url:    tradingURL(c.baseURL, pathLogout, s.ID),
		params: sessionParams(s),
		cookie: s.ID,
	})
	c.setSession(func(s *Session) { *s = Session{} })
	if c.store != nil {
		if err := c.store.Clear(ctx); err != nil {
			c.log.WithError(err).Warn("degiro stored session not cleared")
		}
	}
	return callErr
}
