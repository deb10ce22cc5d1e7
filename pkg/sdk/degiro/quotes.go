package degiro

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/buger/jsonparser"
	"github.com/sirupsen/logrus"

	"github.com/betbot/degiro/pkg/ratelimit"
)

// quoteAttempts bounds the request-subscribe-poll sequence when quotecast
// only answers with heartbeats.
const quoteAttempts = 3

// GetAskBidPrice opens a quotecast session, subscribes to the bid, ask and
// last fields of issueID (a product's vwdId) and returns the first data
// poll as a Quote.
func (c *Client) GetAskBidPrice(ctx context.Context, issueID string) (Quote, error) {
	const op = "quote"
	if issueID == "" {
		return nil, &DataShapeError{Op: op, What: "empty issue id"}
	}
	if strings.IndexFunc(issueID, badIssueRune) >= 0 {
		return nil, &DataShapeError{Op: op, What: "invalid issue id " + strconv.Quote(issueID)}
	}
	s, err := c.requireSession()
	if err != nil {
		return nil, err
	}
	if s.UserToken == 0 {
		return nil, &AuthenticationError{Message: "quote: user token unknown, call Login or Resume first"}
	}
	log := c.log.WithField("issueId", issueID)

	var last []byte
	for attempt := 1; attempt <= quoteAttempts; attempt++ {
		payload, err := c.quoteRound(ctx, s.UserToken, issueID)
		if err != nil {
			return nil, err
		}
		last = payload
		if isHeartbeat(payload) {
			log.WithField("attempt", attempt).Debug("quotecast heartbeat only, retrying")
			continue
		}
		return c.parseQuote(op, issueID, payload)
	}
	log.WithFields(logrus.Fields{"attempts": quoteAttempts}).Warn("quotecast returned no data")
	return nil, &TimeoutError{Attempts: quoteAttempts, Payload: last}
}

// quoteRound runs one request_session, subscribe, poll sequence and returns
// the raw poll body.
func (c *Client) quoteRound(ctx context.Context, userToken int64, issueID string) ([]byte, error) {
	const op = "quote"
	base := c.quotecastBase() + "/"
	headers := map[string]string{"Origin": quotecastOrigin}

	body, err := c.do(ctx, call{
		op:      op,
		class:   ratelimit.ClassQuotecast,
		method:  http.MethodPost,
		url:     base + pathRequestSession,
		params:  url.Values{"version": {quotecastVersion}, "userToken": {strconv.FormatInt(userToken, 10)}},
		headers: headers,
		body:    map[string]string{"referrer": quotecastOrigin},
	})
	if err != nil {
		return nil, err
	}
	qsid, err := expectString(op, body, "sessionId")
	if err != nil {
		return nil, err
	}
	endpoint := base + url.PathEscape(qsid)

	if _, err := c.do(ctx, call{
		op:      op,
		class:   ratelimit.ClassQuotecast,
		method:  http.MethodPost,
		url:     endpoint,
		headers: headers,
		body:    map[string]string{"controlData": controlData(issueID)},
	}); err != nil {
		return nil, err
	}

	return c.do(ctx, call{
		op:      op,
		class:   ratelimit.ClassQuotecast,
		method:  http.MethodGet,
		url:     endpoint,
		headers: headers,
	})
}

// badIssueRune matches characters that would break out of a req(...) term
// in controlData.
func badIssueRune(r rune) bool {
	switch r {
	case '(', ')', ';', ',':
		return true
	}
	return unicode.IsSpace(r) || unicode.IsControl(r)
}

func controlData(issueID string) string {
	var b strings.Builder
	for _, f := range quoteFields {
		b.WriteString("req(")
		b.WriteString(issueID)
		b.WriteByte('.')
		b.WriteString(f)
		b.WriteString(");")
	}
	return b.String()
}

// isHeartbeat reports a poll made of exactly one {"m":"h"} row.
func isHeartbeat(payload []byte) bool {
	n := 0
	hb := false
	_, err := jsonparser.ArrayEach(payload, func(row []byte, _ jsonparser.ValueType, _ int, _ error) {
		n++
		m, _ := jsonparser.GetString(row, "m")
		hb = m == "h"
	})
	return err == nil && n == 1 && hb
}

// parseQuote maps a_req rows (field name to stream key) then un/us rows
// (stream key to value).
func (c *Client) parseQuote(op, issueID string, payload []byte) (Quote, error) {
	if _, typ, _, err := jsonparser.Get(payload); err != nil || typ != jsonparser.Array {
		return nil, &DataShapeError{Op: op, What: "poll is not an array", Payload: payload}
	}
	prefix := issueID + "."
	fields := map[string]string{}
	each := func(fn func(m string, row []byte)) {
		_, _ = jsonparser.ArrayEach(payload, func(row []byte, typ jsonparser.ValueType, _ int, _ error) {
			if typ != jsonparser.Object {
				return
			}
			m, _ := jsonparser.GetString(row, "m")
			fn(m, row)
		})
	}

	each(func(m string, row []byte) {
		if m != "a_req" {
			return
		}
		name, err := jsonparser.GetString(row, "v", "[0]")
		if err != nil || !strings.HasPrefix(name, prefix) {
			return
		}
		key, _, _, err := jsonparser.Get(row, "v", "[1]")
		if err != nil {
			return
		}
		fields[string(key)] = lcFirst(name[len(prefix):])
	})

	q := Quote{}
	each(func(m string, row []byte) {
		if m != "un" && m != "us" {
			return
		}
		key, _, _, err := jsonparser.Get(row, "v", "[0]")
		if err != nil {
			return
		}
		field, ok := fields[string(key)]
		if !ok {
			return
		}
		raw, typ, _, err := jsonparser.Get(row, "v", "[1]")
		if err != nil {
			return
		}
		switch typ {
		case jsonparser.Number:
			if f, err := strconv.ParseFloat(string(raw), 64); err == nil {
				q[field] = f
			}
		case jsonparser.String:
			if s, err := jsonparser.ParseString(raw); err == nil {
				q[field] = s
			}
		}
	})

	if c.strictQuotes {
		for _, f := range quoteFields {
			if _, ok := q[lcFirst(f)]; !ok {
				return nil, &DataShapeError{Op: op, What: "missing quote field " + lcFirst(f), Payload: payload}
			}
		}
	}
	return q, nil
}

func lcFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}
