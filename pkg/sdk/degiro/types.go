package degiro

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// ParseAction accepts buy/sell in any case.
func ParseAction(s string) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(Buy):
		return Buy, nil
	case string(Sell):
		return Sell, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

type OrderType int

const (
	Limit     OrderType = 0
	StopLimit OrderType = 1
	Market    OrderType = 2
	StopLoss  OrderType = 3
)

var orderTypeNames = map[string]OrderType{
	"limit":     Limit,
	"stoplimit": StopLimit,
	"market":    Market,
	"stoploss":  StopLoss,
}

func (t OrderType) String() string {
	switch t {
	case Limit:
		return "limit"
	case StopLimit:
		return "stopLimit"
	case Market:
		return "market"
	case StopLoss:
		return "stopLoss"
	}
	return "orderType(" + strconv.Itoa(int(t)) + ")"
}

func ParseOrderType(s string) (OrderType, error) {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))
	if t, ok := orderTypeNames[key]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown order type %q", s)
}

type TimeType int

const (
	Day TimeType = 1
	GTC TimeType = 3
)

func (t TimeType) String() string {
	switch t {
	case Day:
		return "day"
	case GTC:
		return "gtc"
	}
	return "timeType(" + strconv.Itoa(int(t)) + ")"
}

func ParseTimeType(s string) (TimeType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "":
		return Day, nil
	case "gtc", "permanent":
		return GTC, nil
	}
	return 0, fmt.Errorf("unknown time type %q", s)
}

// ProductType is the vendor product type id. ProductTypeAll omits the filter.
type ProductType int

const (
	ProductTypeAll    ProductType = 0
	Shares            ProductType = 1
	Bonds             ProductType = 2
	Futures           ProductType = 7
	Options           ProductType = 8
	Funds             ProductType = 13
	LeveragedProducts ProductType = 14
	ETFs              ProductType = 131
	CFDs              ProductType = 535
	Warrants          ProductType = 536
)

var productTypeNames = map[string]ProductType{
	"all":        ProductTypeAll,
	"shares":     Shares,
	"bonds":      Bonds,
	"futures":    Futures,
	"options":    Options,
	"funds":      Funds,
	"leveraged":  LeveragedProducts,
	"etfs":       ETFs,
	"cfds":       CFDs,
	"warrants":   Warrants,
	"investment": Funds,
}

func ParseProductType(s string) (ProductType, error) {
	if s == "" {
		return ProductTypeAll, nil
	}
	if t, ok := productTypeNames[strings.ToLower(s)]; ok {
		return t, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return ProductType(n), nil
	}
	return 0, fmt.Errorf("unknown product type %q", s)
}

type SortType string

const (
	Asc  SortType = "asc"
	Desc SortType = "desc"
)

// FlexString decodes a JSON string or number into a string. Product and
// exchange ids arrive in both forms.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

func (s FlexString) String() string { return string(s) }

// URLs are the per-session routing hosts returned by the config endpoint.
type URLs struct {
	PaURL                  string `json:"paUrl"`
	ProductSearchURL       string `json:"productSearchUrl"`
	ProductTypesURL        string `json:"productTypesUrl"`
	ReportingURL           string `json:"reportingUrl"`
	TradingURL             string `json:"tradingUrl"`
	VwdQuotecastServiceURL string `json:"vwdQuotecastServiceUrl"`
}

// ClientInfo holds the fields of the client blob the library uses. Raw keeps
// the full vendor object.
type ClientInfo struct {
	ID          int64           `json:"id"`
	IntAccount  int64           `json:"intAccount"`
	ClientRole  string          `json:"clientRole"`
	Username    string          `json:"username"`
	DisplayName string          `json:"displayName"`
	Email       string          `json:"email"`
	Raw         json.RawMessage `json:"-"`
}

// Session is the authenticated state of a Client. It is a value copy; the
// client keeps the authoritative one.
type Session struct {
	ID         string      `json:"id"`
	Account    int64       `json:"account"`
	UserToken  int64       `json:"userToken"`
	URLs       URLs        `json:"urls"`
	ClientInfo *ClientInfo `json:"clientInfo,omitempty"`
	StartedAt  time.Time   `json:"startedAt"`
}

// Valid reports whether the session can be used for data calls.
func (s Session) Valid() bool {
	return s.ID != "" && s.Account != 0
}

// Order is an order request. Price is required for limit and stop-limit
// orders, StopPrice for stop-loss and stop-limit orders.
type Order struct {
	Action    Action              `json:"buySell"`
	OrderType OrderType           `json:"orderType"`
	ProductID string              `json:"productId"`
	Size      decimal.Decimal     `json:"size"`
	TimeType  TimeType            `json:"timeType"`
	Price     decimal.NullDecimal `json:"price"`
	StopPrice decimal.NullDecimal `json:"stopPrice"`
}

func (o Order) Validate() error {
	if o.Action != Buy && o.Action != Sell {
		return fmt.Errorf("invalid action %q", o.Action)
	}
	if o.ProductID == "" {
		return fmt.Errorf("product id is required")
	}
	if !o.Size.IsPositive() {
		return fmt.Errorf("size must be positive, got %s", o.Size)
	}
	if o.TimeType != Day && o.TimeType != GTC {
		return fmt.Errorf("invalid time type %d", o.TimeType)
	}
	switch o.OrderType {
	case Limit:
		if !o.Price.Valid {
			return fmt.Errorf("limit order needs a price")
		}
	case StopLimit:
		if !o.Price.Valid || !o.StopPrice.Valid {
			return fmt.Errorf("stop-limit order needs a price and a stop price")
		}
	case StopLoss:
		if !o.StopPrice.Valid {
			return fmt.Errorf("stop-loss order needs a stop price")
		}
	case Market:
	default:
		return fmt.Errorf("invalid order type %d", o.OrderType)
	}
	if o.Price.Valid && !o.Price.Decimal.IsPositive() {
		return fmt.Errorf("price must be positive, got %s", o.Price.Decimal)
	}
	if o.StopPrice.Valid && !o.StopPrice.Decimal.IsPositive() {
		return fmt.Errorf("stop price must be positive, got %s", o.StopPrice.Decimal)
	}
	return nil
}

// payload is the wire form shared by checkOrder and confirmOrder. Numbers go
// out unquoted.
func (o Order) payload() map[string]any {
	p := map[string]any{
		"buySell":   string(o.Action),
		"orderType": int(o.OrderType),
		"productId": o.ProductID,
		"size":      json.RawMessage(o.Size.String()),
		"timeType":  int(o.TimeType),
	}
	if o.Price.Valid {
		p["price"] = json.RawMessage(o.Price.Decimal.String())
	}
	if o.StopPrice.Valid {
		p["stopPrice"] = json.RawMessage(o.StopPrice.Decimal.String())
	}
	return p
}

// CheckedOrder is an order the vendor accepted for confirmation.
type CheckedOrder struct {
	Order           Order           `json:"order"`
	ConfirmationID  string          `json:"confirmationId"`
	FreeSpaceNew    json.RawMessage `json:"freeSpaceNew,omitempty"`
	TransactionFees json.RawMessage `json:"transactionFees,omitempty"`
}

// PlacedOrder is the final state of SetOrder.
type PlacedOrder struct {
	Order          Order  `json:"order"`
	ConfirmationID string `json:"confirmationId"`
	OrderID        string `json:"orderId"`
}

// Record is a vendor row flattened from its name/value list.
type Record map[string]any

// String returns the field formatted with fmt, or "" when absent.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Decimal returns a numeric field as a decimal.
func (r Record) Decimal(key string) (decimal.Decimal, bool) {
	switch v := r[key].(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	}
	return decimal.Zero, false
}

// Orders groups the rows returned by GetOrders.
type Orders struct {
	Open         []Record `json:"openOrders"`
	Historical   []Record `json:"historicalOrders"`
	Transactions []Record `json:"transactions"`
}

type Product struct {
	ID            FlexString          `json:"id"`
	Name          string              `json:"name"`
	ISIN          string              `json:"isin"`
	Symbol        string              `json:"symbol"`
	Currency      string              `json:"currency"`
	ProductType   string              `json:"productType"`
	ProductTypeID int                 `json:"productTypeId"`
	ExchangeID    FlexString          `json:"exchangeId"`
	VwdID         FlexString          `json:"vwdId"`
	Tradable      bool                `json:"tradable"`
	CloseDate     string              `json:"closePriceDate"`
	ClosePrice    decimal.NullDecimal `json:"closePrice"`
	Raw           json.RawMessage     `json:"-"`
}

// SearchOptions for SearchProduct. Limit defaults to 7.
type SearchOptions struct {
	Text        string
	ProductType ProductType
	SortColumns string
	SortType    SortType
	Limit       int
	Offset      int
}

// Quote fields requested from quotecast.
const (
	FieldBidPrice  = "bidPrice"
	FieldAskPrice  = "askPrice"
	FieldLastPrice = "lastPrice"
	FieldLastTime  = "lastTime"
)

var quoteFields = []string{"BidPrice", "AskPrice", "LastPrice", "LastTime"}

// Quote maps field names to the last value seen in a poll. Numeric fields
// hold float64, text fields string.
type Quote map[string]any

func (q Quote) decimal(field string) (decimal.Decimal, bool) {
	switch v := q[field].(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	}
	return decimal.Zero, false
}

func (q Quote) Bid() (decimal.Decimal, bool)  { return q.decimal(FieldBidPrice) }
func (q Quote) Ask() (decimal.Decimal, bool)  { return q.decimal(FieldAskPrice) }
func (q Quote) Last() (decimal.Decimal, bool) { return q.decimal(FieldLastPrice) }

// LastTime is the vendor time text, usually "HH:MM:SS".
func (q Quote) LastTime() string {
	s, _ := q[FieldLastTime].(string)
	return s
}
