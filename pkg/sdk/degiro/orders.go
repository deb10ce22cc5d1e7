package degiro

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/degiro/pkg/ratelimit"
)

// CheckOrder asks the vendor to validate o and returns the confirmation id
// needed by ConfirmOrder, along with the fee estimate.
func (c *Client) CheckOrder(ctx context.Context, o Order) (*CheckedOrder, error) {
	const op = "check order"
	if err := o.Validate(); err != nil {
		return nil, errors.Wrap(err, "degiro check order")
	}
	s, err := c.requireSession()
	if err != nil {
		return nil, err
	}
	if err := requireURL(op, "tradingUrl", s.URLs.TradingURL); err != nil {
		return nil, err
	}
	body, err := c.do(ctx, call{
		op:     op,
		class:  ratelimit.ClassOrder,
		method: http.MethodPost,
		url:    tradingURL(s.URLs.TradingURL, pathCheckOrder, s.ID),
		params: sessionParams(s),
		body:   o.payload(),
		cookie: s.ID,
	})
	if err != nil {
		return nil, err
	}
	confirmationID, err := expectString(op, body, "data", "confirmationId")
	if err != nil {
		return nil, err
	}
	checked := &CheckedOrder{Order: o, ConfirmationID: confirmationID}
	if raw, _, _, err := jsonparser.Get(body, "data", "freeSpaceNew"); err == nil {
		checked.FreeSpaceNew = append([]byte(nil), raw...)
	}
	if raw, _, _, err := jsonparser.Get(body, "data", "transactionFees"); err == nil {
		checked.TransactionFees = append([]byte(nil), raw...)
	}
	c.orderLog(o).WithField("confirmationId", confirmationID).Info("degiro order checked")
	if c.hook != nil {
		if err := c.hook.OrderChecked(ctx, *checked); err != nil {
			c.log.WithError(err).Warn("degiro order hook failed")
		}
	}
	return checked, nil
}

// ConfirmOrder places a checked order. The confirmation id becomes a path
// segment of the request.
func (c *Client) ConfirmOrder(ctx context.Context, checked CheckedOrder) (*PlacedOrder, error) {
	const op = "confirm order"
	if checked.ConfirmationID == "" {
		return nil, errors.New("degiro confirm order: empty confirmation id")
	}
	s, err := c.requireSession()
	if err != nil {
		return nil, err
	}
	if err := requireURL(op, "tradingUrl", s.URLs.TradingURL); err != nil {
		return nil, err
	}
	body, err := c.do(ctx, call{
		op:     op,
		class:  ratelimit.ClassOrder,
		method: http.MethodPost,
		url:    tradingURL(s.URLs.TradingURL, pathOrder+url.PathEscape(checked.ConfirmationID), s.ID),
		params: sessionParams(s),
		body:   checked.Order.payload(),
		cookie: s.ID,
	})
	if err != nil {
		return nil, err
	}
	orderID, err := expectString(op, body, "data", "orderId")
	if err != nil {
		return nil, err
	}
	placed := &PlacedOrder{Order: checked.Order, ConfirmationID: checked.ConfirmationID, OrderID: orderID}
	c.orderLog(checked.Order).WithField("orderId", orderID).Info("degiro order placed")
	if c.hook != nil {
		if err := c.hook.OrderPlaced(ctx, *placed); err != nil {
			c.log.WithError(err).Warn("degiro order hook failed")
		}
	}
	return placed, nil
}

// SetOrder checks then confirms o. A failed confirmation leaves nothing to
// roll back: an unconfirmed check simply expires on the vendor side.
func (c *Client) SetOrder(ctx context.Context, o Order) (*PlacedOrder, error) {
	checked, err := c.CheckOrder(ctx, o)
	if err != nil {
		return nil, err
	}
	return c.ConfirmOrder(ctx, *checked)
}

// DeleteOrder cancels an open order. It returns true only for a vendor
// "success" answer; any other answer is an *HTTPError.
func (c *Client) DeleteOrder(ctx context.Context, orderID string) (bool, error) {
	const op = "delete order"
	if orderID == "" {
		return false, errors.New("degiro delete order: empty order id")
	}
	s, err := c.requireSession()
	if err != nil {
		return false, err
	}
	if err := requireURL(op, "tradingUrl", s.URLs.TradingURL); err != nil {
		return false, err
	}
	resp, err := c.send(ctx, call{
		op:     op,
		class:  ratelimit.ClassOrder,
		method: http.MethodDelete,
		url:    tradingURL(s.URLs.TradingURL, pathOrder+url.PathEscape(orderID), s.ID),
		params: sessionParams(s),
		cookie: s.ID,
	})
	if err != nil {
		return false, err
	}
	status, statusErr := jsonparser.GetInt(resp.Body, "status")
	statusText, _ := jsonparser.GetString(resp.Body, "statusText")
	if !resp.IsSuccess() || statusErr != nil || status != 0 || statusText != "success" {
		return false, newHTTPError(op, resp)
	}
	c.log.WithField("orderId", orderID).Info("degiro order deleted")
	if c.hook != nil {
		if err := c.hook.OrderDeleted(ctx, orderID); err != nil {
			c.log.WithError(err).Warn("degiro order hook failed")
		}
	}
	return true, nil
}

func (c *Client) orderLog(o Order) logrus.FieldLogger {
	return c.log.WithFields(logrus.Fields{
		"action":    o.Action,
		"type":      o.OrderType.String(),
		"productId": o.ProductID,
		"size":      o.Size.String(),
	})
}

// expectString returns a non-empty string (or number, as text) at keys.
func expectString(op string, payload []byte, keys ...string) (string, error) {
	value, typ, _, err := jsonparser.Get(payload, keys...)
	if err != nil || (typ != jsonparser.String && typ != jsonparser.Number) || len(value) == 0 {
		return "", &DataShapeError{Op: op, What: "missing " + strings.Join(keys, "."), Payload: payload}
	}
	if typ == jsonparser.String {
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return "", &DataShapeError{Op: op, What: err.Error(), Payload: payload}
		}
		return s, nil
	}
	return string(value), nil
}
