package degiro

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/buger/jsonparser"

	"github.com/betbot/degiro/pkg/ratelimit"
)

// Fields accepted by GetData.
const (
	DataCashFunds        = "cashFunds"
	DataPortfolio        = "portfolio"
	DataOrders           = "orders"
	DataHistoricalOrders = "historicalOrders"
	DataTransactions     = "transactions"
	DataTotalPortfolio   = "totalPortfolio"
	DataAlerts           = "alerts"
)

// cash fund columns that carry no information for callers
var cashFundDropped = []string{"handling", "currencyCode"}

type nameValue struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type vendorRow struct {
	ID    FlexString  `json:"id"`
	Value []nameValue `json:"value"`
}

func (c *Client) getDataRaw(ctx context.Context, op string, fields ...string) ([]byte, error) {
	s, err := c.requireSession()
	if err != nil {
		return nil, err
	}
	if err := requireURL(op, "tradingUrl", s.URLs.TradingURL); err != nil {
		return nil, err
	}
	params := url.Values{}
	for _, f := range fields {
		params.Set(f, "0")
	}
	return c.do(ctx, call{
		op:     op,
		class:  ratelimit.ClassTrading,
		method: http.MethodGet,
		url:    tradingURL(s.URLs.TradingURL, pathUpdate+strconv.FormatInt(s.Account, 10), s.ID),
		params: params,
		cookie: s.ID,
	})
}

// GetData is the generic account update call. Each field is requested with
// a zero "last updated" marker, which returns the full current state.
func (c *Client) GetData(ctx context.Context, fields ...string) (map[string]any, error) {
	const op = "get data"
	body, err := c.getDataRaw(ctx, op, fields...)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := decodeNumbers(body, &out); err != nil {
		return nil, &DataShapeError{Op: op, What: err.Error(), Payload: body}
	}
	return out, nil
}

// GetCashFunds returns one record per currency fund, without the handling
// and currencyCode columns.
func (c *Client) GetCashFunds(ctx context.Context) ([]Record, error) {
	const op = "cash funds"
	body, err := c.getDataRaw(ctx, op, DataCashFunds)
	if err != nil {
		return nil, err
	}
	value, err := expect(op, body, jsonparser.Array, DataCashFunds, "value")
	if err != nil {
		return nil, err
	}
	return flattenRows(op, body, value, cashFundDropped...)
}

// GetPortfolio returns one record per position.
func (c *Client) GetPortfolio(ctx context.Context) ([]Record, error) {
	const op = "portfolio"
	body, err := c.getDataRaw(ctx, op, DataPortfolio)
	if err != nil {
		return nil, err
	}
	value, err := expect(op, body, jsonparser.Array, DataPortfolio, "value")
	if err != nil {
		return nil, err
	}
	return flattenRows(op, body, value)
}

// GetOrders returns open orders with their date column parsed to a
// time.Time, plus today's historical orders and transactions when the
// vendor includes them.
func (c *Client) GetOrders(ctx context.Context) (*Orders, error) {
	const op = "orders"
	body, err := c.getDataRaw(ctx, op, DataOrders, DataHistoricalOrders, DataTransactions)
	if err != nil {
		return nil, err
	}
	value, err := expect(op, body, jsonparser.Array, DataOrders, "value")
	if err != nil {
		return nil, err
	}
	open, err := flattenRows(op, body, value)
	if err != nil {
		return nil, err
	}
	now := c.now()
	for _, r := range open {
		v, present := r["date"]
		if !present || v == nil {
			continue
		}
		raw, ok := v.(string)
		if !ok {
			return nil, &ParseError{Value: fmt.Sprint(v), Reason: "order date is not text"}
		}
		t, err := ParseOrderDate(raw, now)
		if err != nil {
			return nil, err
		}
		r["date"] = t
	}

	out := &Orders{Open: open}
	for _, section := range []struct {
		key string
		dst *[]Record
	}{
		{DataHistoricalOrders, &out.Historical},
		{DataTransactions, &out.Transactions},
	} {
		if _, _, _, err := jsonparser.Get(body, section.key, "value"); err != nil {
			continue
		}
		value, err := expect(op, body, jsonparser.Array, section.key, "value")
		if err != nil {
			return nil, err
		}
		if *section.dst, err = flattenRows(op, body, value); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetTasks lists pending account tasks (documents to accept, profile
// questions) from the account service.
func (c *Client) GetTasks(ctx context.Context) ([]Record, error) {
	const op = "tasks"
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
		url:    s.URLs.PaURL + pathTasks,
		params: sessionParams(s),
		cookie: s.ID,
	})
	if err != nil {
		return nil, err
	}
	return recordsAt(op, body, "data")
}

// flattenRows turns [{id, value:[{name, value}]}] into records, dropping
// the named columns.
func flattenRows(op string, payload, value []byte, drop ...string) ([]Record, error) {
	var rows []vendorRow
	if err := decodeNumbers(value, &rows); err != nil {
		return nil, &DataShapeError{Op: op, What: err.Error(), Payload: payload}
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		r := make(Record, len(row.Value)+1)
		for _, nv := range row.Value {
			r[nv.Name] = nv.Value
		}
		if _, ok := r["id"]; !ok && row.ID != "" {
			r["id"] = row.ID.String()
		}
		for _, k := range drop {
			delete(r, k)
		}
		out = append(out, r)
	}
	return out, nil
}

// recordsAt decodes the array at keys into plain records.
func recordsAt(op string, payload []byte, keys ...string) ([]Record, error) {
	value, err := expect(op, payload, jsonparser.Array, keys...)
	if err != nil {
		return nil, err
	}
	var out []Record
	if err := decodeNumbers(value, &out); err != nil {
		return nil, &DataShapeError{Op: op, What: err.Error(), Payload: payload}
	}
	if out == nil {
		out = []Record{}
	}
	return out, nil
}

// decodeNumbers keeps vendor amounts as json.Number so they convert to
// decimals without float rounding.
func decodeNumbers(raw []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}
