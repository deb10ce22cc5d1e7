// Package gateway serves a read-only HTTP and websocket API over a logged-in
// DEGIRO client.
package gateway

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/degiro/internal/journal"
	"github.com/betbot/degiro/internal/metrics"
	"github.com/betbot/degiro/pkg/sdk/degiro"
)

// Trader is the part of *degiro.Client the gateway reads from.
type Trader interface {
	Session() degiro.Session
	GetCashFunds(ctx context.Context) ([]degiro.Record, error)
	GetPortfolio(ctx context.Context) ([]degiro.Record, error)
	GetOrders(ctx context.Context) (*degiro.Orders, error)
	GetTasks(ctx context.Context) ([]degiro.Record, error)
	SearchProduct(ctx context.Context, opts degiro.SearchOptions) ([]degiro.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]degiro.Product, error)
	GetAskBidPrice(ctx context.Context, issueID string) (degiro.Quote, error)
}

// JournalReader lists order journal entries.
type JournalReader interface {
	List(ctx context.Context, limit int) ([]journal.Entry, error)
}

type Config struct {
	Trader  Trader
	Journal JournalReader
	// QuoteInterval is the websocket push period; defaults to 5s.
	QuoteInterval time.Duration
	Log           logrus.FieldLogger
}

type Server struct {
	trader        Trader
	journal       JournalReader
	quoteInterval time.Duration
	log           logrus.FieldLogger
	upgrader      websocket.Upgrader
}

func New(cfg Config) (*Server, error) {
	if cfg.Trader == nil {
		return nil, errors.New("gateway: trader is required")
	}
	if cfg.QuoteInterval <= 0 {
		cfg.QuoteInterval = 5 * time.Second
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	return &Server{
		trader:        cfg.Trader,
		journal:       cfg.Journal,
		quoteInterval: cfg.QuoteInterval,
		log:           cfg.Log.WithField("component", "gateway"),
		upgrader: websocket.Upgrader{
			// the gateway binds to localhost; browsers on other origins are refused
			CheckOrigin: sameHost,
		},
	}, nil
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.count)

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := r.Group("/api")
	api.GET("/session", s.handleSession)
	api.GET("/cash", s.handleCash)
	api.GET("/portfolio", s.handlePortfolio)
	api.GET("/orders", s.handleOrders)
	api.GET("/tasks", s.handleTasks)
	api.GET("/products/search", s.handleSearch)
	api.GET("/products", s.handleProducts)
	api.GET("/quotes/:issueID", s.handleQuote)
	api.GET("/journal", s.handleJournal)

	r.GET("/ws/quotes/:issueID", s.handleQuoteStream)
	return r
}

func (s *Server) count(c *gin.Context) {
	start := time.Now()
	c.Next()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	code := strconv.Itoa(c.Writer.Status()/100) + "xx"
	metrics.GatewayRequests.WithLabelValues(route, code).Inc()
	metrics.GatewayRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

type sessionView struct {
	Valid       bool      `json:"valid"`
	Account     int64     `json:"account,omitempty"`
	UserToken   int64     `json:"userToken,omitempty"`
	Username    string    `json:"username,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	StartedAt   time.Time `json:"startedAt,omitempty"`
}

// handleSession never exposes the session id.
func (s *Server) handleSession(c *gin.Context) {
	sess := s.trader.Session()
	v := sessionView{Valid: sess.Valid(), Account: sess.Account, UserToken: sess.UserToken, StartedAt: sess.StartedAt}
	if sess.ClientInfo != nil {
		v.Username = sess.ClientInfo.Username
		v.DisplayName = sess.ClientInfo.DisplayName
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleCash(c *gin.Context) {
	rows, err := s.trader.GetCashFunds(c.Request.Context())
	s.reply(c, rows, err)
}

func (s *Server) handlePortfolio(c *gin.Context) {
	rows, err := s.trader.GetPortfolio(c.Request.Context())
	s.reply(c, rows, err)
}

func (s *Server) handleOrders(c *gin.Context) {
	orders, err := s.trader.GetOrders(c.Request.Context())
	s.reply(c, orders, err)
}

func (s *Server) handleTasks(c *gin.Context) {
	rows, err := s.trader.GetTasks(c.Request.Context())
	s.reply(c, rows, err)
}

func (s *Server) handleSearch(c *gin.Context) {
	text := strings.TrimSpace(c.Query("q"))
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	opts := degiro.SearchOptions{Text: text, SortColumns: c.Query("sort"), SortType: degiro.SortType(c.Query("order"))}
	var err error
	if opts.ProductType, err = degiro.ParseProductType(c.Query("type")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if opts.Limit, err = intQuery(c, "limit"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if opts.Offset, err = intQuery(c, "offset"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	products, err := s.trader.SearchProduct(c.Request.Context(), opts)
	s.reply(c, products, err)
}

func (s *Server) handleProducts(c *gin.Context) {
	var ids []string
	for _, id := range strings.Split(c.Query("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids is required"})
		return
	}
	products, err := s.trader.GetProductsByIDs(c.Request.Context(), ids)
	s.reply(c, products, err)
}

func (s *Server) handleQuote(c *gin.Context) {
	metrics.QuotePolls.Inc()
	q, err := s.trader.GetAskBidPrice(c.Request.Context(), c.Param("issueID"))
	if err != nil {
		metrics.QuoteErrors.Inc()
	}
	s.reply(c, q, err)
}

func (s *Server) handleJournal(c *gin.Context) {
	if s.journal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order journal is disabled"})
		return
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entries, err := s.journal.List(c.Request.Context(), limit)
	s.reply(c, entries, err)
}

func (s *Server) reply(c *gin.Context, v any, err error) {
	if err != nil {
		status := statusFor(err)
		s.log.WithError(err).WithField("path", c.FullPath()).Warn("gateway request failed")
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, v)
}

// statusFor maps client errors onto gateway responses.
func statusFor(err error) int {
	var (
		authErr    *degiro.AuthenticationError
		httpErr    *degiro.HTTPError
		shapeErr   *degiro.DataShapeError
		timeoutErr *degiro.TimeoutError
	)
	switch {
	case errors.As(err, &authErr):
		return http.StatusUnauthorized
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout
	case errors.As(err, &httpErr), errors.As(err, &shapeErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

func sameHost(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	origin = strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://")
	return strings.EqualFold(origin, r.Host)
}
