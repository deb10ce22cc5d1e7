package gateway

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/betbot/degiro/internal/metrics"
	"github.com/betbot/degiro/pkg/sdk/degiro"
	"github.com/betbot/degiro/pkg/sigchan"
	"github.com/betbot/degiro/pkg/syncgroup"
)

const writeWait = 10 * time.Second

// QuoteMessage is pushed on /ws/quotes/:issueID. A failed poll is reported
// with Type "error" and the stream keeps going.
type QuoteMessage struct {
	Type      string       `json:"type"`
	IssueID   string       `json:"issueId"`
	Quote     degiro.Quote `json:"quote,omitempty"`
	Error     string       `json:"error,omitempty"`
	Timestamp int64        `json:"ts"`
}

func (s *Server) handleQuoteStream(c *gin.Context) {
	issueID := c.Param("issueID")
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	metrics.QuoteStreams.Inc()
	defer metrics.QuoteStreams.Dec()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	closed := sigchan.New(1)

	g := syncgroup.NewSyncGroup()
	g.Add(func() {
		// the client only sends control frames; any read error ends the stream
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closed.Emit()
				return
			}
		}
	})
	g.Add(func() {
		defer cancel()
		s.pushQuotes(ctx, conn, issueID, closed)
	})
	g.Run()

	<-ctx.Done()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	_ = conn.Close()
	g.Wait()
}

func (s *Server) pushQuotes(ctx context.Context, conn *websocket.Conn, issueID string, closed *sigchan.Chan) {
	ticker := time.NewTicker(s.quoteInterval)
	defer ticker.Stop()
	for {
		if !s.pushQuote(ctx, conn, issueID) {
			return
		}
		select {
		case <-ticker.C:
		case <-closed.C():
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) pushQuote(ctx context.Context, conn *websocket.Conn, issueID string) bool {
	metrics.QuotePolls.Inc()
	msg := QuoteMessage{Type: "quote", IssueID: issueID}
	q, err := s.trader.GetAskBidPrice(ctx, issueID)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		metrics.QuoteErrors.Inc()
		s.log.WithError(err).WithField("issueId", issueID).Warn("quote poll failed")
		msg.Type = "error"
		msg.Error = err.Error()
	} else {
		msg.Quote = q
	}
	msg.Timestamp = time.Now().UTC().Unix()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg) == nil
}
