package degiro

import (
	"context"
	"net/http"
	"strconv"

	"github.com/buger/jsonparser"

	"github.com/betbot/degiro/pkg/ratelimit"
)

const defaultSearchLimit = 7

// SearchProduct looks products up by free text.
func (c *Client) SearchProduct(ctx context.Context, opts SearchOptions) ([]Product, error) {
	const op = "search product"
	s, err := c.requireSession()
	if err != nil {
		return nil, err
	}
	if err := requireURL(op, "productSearchUrl", s.URLs.ProductSearchURL); err != nil {
		return nil, err
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultSearchLimit
	}
	params := sessionParams(s)
	params.Set("searchText", opts.Text)
	params.Set("limit", strconv.Itoa(opts.Limit))
	params.Set("offset", strconv.Itoa(opts.Offset))
	if opts.ProductType != ProductTypeAll {
		params.Set("productTypeId", strconv.Itoa(int(opts.ProductType)))
	}
	if opts.SortColumns != "" {
		params.Set("sortColumns", opts.SortColumns)
	}
	if opts.SortType != "" {
		params.Set("sortTypes", string(opts.SortType))
	}

	body, err := c.do(ctx, call{
		op:     op,
		class:  ratelimit.ClassProduct,
		method: http.MethodGet,
		url:    s.URLs.ProductSearchURL + pathProductLookup,
		params: params,
		cookie: s.ID,
	})
	if err != nil {
		return nil, err
	}
	value, err := expect(op, body, jsonparser.Array, "products")
	if err != nil {
		return nil, err
	}

	products := []Product{}
	var shapeErr error
	_, err = jsonparser.ArrayEach(value, func(raw []byte, typ jsonparser.ValueType, _ int, _ error) {
		if shapeErr != nil {
			return
		}
		p, err := decodeProduct(op, body, raw)
		if err != nil {
			shapeErr = err
			return
		}
		products = append(products, p)
		c.cacheProduct(p)
	})
	if shapeErr != nil {
		return nil, shapeErr
	}
	if err != nil {
		return nil, &DataShapeError{Op: op, What: err.Error(), Payload: body}
	}
	return products, nil
}

// GetProductsByIDs returns products keyed by id. Cached products are served
// locally and only the rest are requested.
func (c *Client) GetProductsByIDs(ctx context.Context, ids []string) (map[string]Product, error) {
	const op = "products info"
	out := make(map[string]Product, len(ids))
	missing := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if c.products != nil {
			if p, ok := c.products.Get(id); ok {
				out[id] = p
				continue
			}
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	s, err := c.requireSession()
	if err != nil {
		return nil, err
	}
	if err := requireURL(op, "productSearchUrl", s.URLs.ProductSearchURL); err != nil {
		return nil, err
	}
	body, err := c.do(ctx, call{
		op:     op,
		class:  ratelimit.ClassProduct,
		method: http.MethodPost,
		url:    s.URLs.ProductSearchURL + pathProductInfo,
		params: sessionParams(s),
		body:   missing,
		cookie: s.ID,
	})
	if err != nil {
		return nil, err
	}
	data, err := expect(op, body, jsonparser.Object, "data")
	if err != nil {
		return nil, err
	}
	var shapeErr error
	err = jsonparser.ObjectEach(data, func(key, raw []byte, typ jsonparser.ValueType, _ int) error {
		if typ != jsonparser.Object {
			return &DataShapeError{Op: op, What: "data." + string(key) + " is " + typ.String(), Payload: body}
		}
		p, err := decodeProduct(op, body, raw)
		if err != nil {
			shapeErr = err
			return err
		}
		out[string(key)] = p
		c.cacheProduct(p)
		return nil
	})
	if shapeErr != nil {
		return nil, shapeErr
	}
	if err != nil {
		if _, ok := err.(*DataShapeError); ok {
			return nil, err
		}
		return nil, &DataShapeError{Op: op, What: err.Error(), Payload: body}
	}
	return out, nil
}

func decodeProduct(op string, payload, raw []byte) (Product, error) {
	var p Product
	if err := decode(op, payload, raw, &p); err != nil {
		return Product{}, err
	}
	if p.ID == "" {
		return Product{}, &DataShapeError{Op: op, What: "product without id", Payload: payload}
	}
	p.Raw = append([]byte(nil), raw...)
	return p, nil
}

func (c *Client) cacheProduct(p Product) {
	if c.products != nil {
		c.products.Set(p.ID.String(), p, 0)
	}
}
