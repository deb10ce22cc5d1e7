package degiro

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/betbot/degiro/pkg/ratelimit"
)

// GetOrdersHistory lists orders created between from and to (inclusive,
// day resolution).
func (c *Client) GetOrdersHistory(ctx context.Context, from, to time.Time) ([]Record, error) {
	return c.report(ctx, "order history", pathOrderHistory, from, to, nil)
}

// GetTransactions lists executed transactions between from and to, one row
// per fill.
func (c *Client) GetTransactions(ctx context.Context, from, to time.Time) ([]Record, error) {
	return c.report(ctx, "transactions", pathTransactions, from, to, map[string]string{
		"groupTransactionsByOrder": "false",
	})
}

func (c *Client) report(ctx context.Context, op, path string, from, to time.Time, extra map[string]string) ([]Record, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("degiro %s: from %s is after to %s", op, from.Format(reportDateLayout), to.Format(reportDateLayout))
	}
	s, err := c.requireSession()
	if err != nil {
		return nil, err
	}
	if err := requireURL(op, "reportingUrl", s.URLs.ReportingURL); err != nil {
		return nil, err
	}
	params := sessionParams(s)
	params.Set("fromDate", from.Format(reportDateLayout))
	params.Set("toDate", to.Format(reportDateLayout))
	for k, v := range extra {
		params.Set(k, v)
	}
	body, err := c.do(ctx, call{
		op:     op,
		class:  ratelimit.ClassReporting,
		method: http.MethodGet,
		url:    s.URLs.ReportingURL + path,
		params: params,
		cookie: s.ID,
	})
	if err != nil {
		return nil, err
	}
	return recordsAt(op, body, "data")
}
