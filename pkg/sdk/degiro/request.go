package degiro

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"

	sdkhttp "github.com/betbot/degiro/pkg/sdk/http"
)

// call describes one vendor exchange.
type call struct {
	op      string
	class   string
	method  string
	url     string
	params  url.Values
	body    any
	headers map[string]string
	// cookie attaches JSESSIONID
	cookie string
}

// send performs c without interpreting the status.
func (c *Client) send(ctx context.Context, r call) (*sdkhttp.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, r.class); err != nil {
			return nil, errors.Wrapf(err, "degiro %s: rate limit", r.op)
		}
	}
	opt := &sdkhttp.RequestOptions{
		Headers: r.headers,
		Params:  r.params,
		Data:    r.body,
	}
	if r.cookie != "" {
		opt.Cookies = map[string]string{sessionCookie: r.cookie}
	}
	resp, err := c.http.Do(ctx, r.method, r.url, opt)
	if err != nil {
		return nil, errors.Wrapf(err, "degiro %s", r.op)
	}
	return resp, nil
}

// do performs c and turns non-2xx answers into *HTTPError.
func (c *Client) do(ctx context.Context, r call) ([]byte, error) {
	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, newHTTPError(r.op, resp)
	}
	return resp.Body, nil
}

func newHTTPError(op string, resp *sdkhttp.Response) *HTTPError {
	e := &HTTPError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		Message:    vendorMessage(resp.Body),
	}
	if st, err := jsonparser.GetInt(resp.Body, "status"); err == nil {
		e.VendorStatus = int(st)
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}

// vendorMessage pulls the human readable error out of a vendor body.
func vendorMessage(body []byte) string {
	if s, err := jsonparser.GetString(body, "errors", "[0]", "text"); err == nil && s != "" {
		return s
	}
	for _, key := range []string{"statusText", "message", "error"} {
		if s, err := jsonparser.GetString(body, key); err == nil && s != "" {
			return s
		}
	}
	return ""
}

// sessionParams is the intAccount/sessionId pair most endpoints expect.
func sessionParams(s Session) url.Values {
	v := url.Values{}
	v.Set("intAccount", strconv.FormatInt(s.Account, 10))
	v.Set("sessionId", s.ID)
	return v
}

// tradingURL builds {base}{path};jsessionid={id}.
func tradingURL(base, path, sessionID string) string {
	return base + path + ";jsessionid=" + sessionID
}

// expect returns the value at keys when it has the wanted JSON type.
func expect(op string, payload []byte, want jsonparser.ValueType, keys ...string) ([]byte, error) {
	value, typ, _, err := jsonparser.Get(payload, keys...)
	path := strings.Join(keys, ".")
	if err != nil {
		return nil, &DataShapeError{Op: op, What: "missing " + path, Payload: payload}
	}
	if typ != want {
		return nil, &DataShapeError{Op: op, What: path + " is " + typ.String() + ", want " + want.String(), Payload: payload}
	}
	return value, nil
}

// decode unmarshals a sub-document, reporting failures as shape errors.
func decode(op string, payload, value []byte, out any) error {
	if err := json.Unmarshal(value, out); err != nil {
		return &DataShapeError{Op: op, What: err.Error(), Payload: payload}
	}
	return nil
}
