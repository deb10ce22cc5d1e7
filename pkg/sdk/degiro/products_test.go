package degiro

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchProduct(t *testing.T) {
	f := newFakeVendor(t)
	f.handle(http.MethodGet, "/product_search/v5/products/lookup", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "apple", q.Get("searchText"))
		assert.Equal(t, "7", q.Get("limit"))
		assert.Equal(t, "0", q.Get("offset"))
		assert.Equal(t, "1", q.Get("productTypeId"))
		assert.Equal(t, "desc", q.Get("sortTypes"))
		assert.Equal(t, "1001", q.Get("intAccount"))
		writeRaw(w, http.StatusOK, `{"offset":0,"products":[
			{"id":"331868","name":"Apple Inc","isin":"US0378331005","symbol":"AAPL","currency":"USD","productTypeId":1,"vwdId":"350015372","exchangeId":663,"tradable":true,"closePrice":189.5}
		]}`)
	})
	c := f.loggedIn()
	products, err := c.SearchProduct(context.Background(), SearchOptions{Text: "apple", ProductType: Shares, SortType: Desc})
	require.NoError(t, err)
	require.Len(t, products, 1)
	p := products[0]
	assert.Equal(t, FlexString("331868"), p.ID)
	assert.Equal(t, FlexString("663"), p.ExchangeID)
	assert.Equal(t, "350015372", p.VwdID.String())
	require.True(t, p.ClosePrice.Valid)
	assert.Equal(t, "189.5", p.ClosePrice.Decimal.String())
	assert.Contains(t, string(p.Raw), "US0378331005")

	cached, err := c.GetProductsByIDs(context.Background(), []string{"331868"})
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", cached["331868"].Name)
	assert.Equal(t, 0, f.hitCount(http.MethodPost, "/product_search/v5/products/info"))
}

func TestSearchProductMissingProducts(t *testing.T) {
	f := newFakeVendor(t)
	f.handle(http.MethodGet, "/product_search/v5/products/lookup", func(w http.ResponseWriter, r *http.Request) {
		writeRaw(w, http.StatusOK, `{"offset":0}`)
	})
	_, err := f.loggedIn().SearchProduct(context.Background(), SearchOptions{Text: "nothing"})
	var shapeErr *DataShapeError
	require.True(t, errors.As(err, &shapeErr), "got %v", err)
	assert.Equal(t, "missing products", shapeErr.What)
}

func TestGetProductsByIDs(t *testing.T) {
	f := newFakeVendor(t)
	var requested [][]string
	f.handle(http.MethodPost, "/product_search/v5/products/info", func(w http.ResponseWriter, r *http.Request) {
		var ids []string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ids))
		requested = append(requested, ids)
		writeRaw(w, http.StatusOK, `{"data":{
			"1":{"id":"1","name":"One","productTypeId":131},
			"2":{"id":2,"name":"Two","productTypeId":1}
		}}`)
	})
	c := f.loggedIn()

	got, err := c.GetProductsByIDs(context.Background(), []string{"1", "2", "1", ""})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Two", got["2"].Name)
	assert.Equal(t, FlexString("2"), got["2"].ID)
	assert.Equal(t, [][]string{{"1", "2"}}, requested)

	_, err = c.GetProductsByIDs(context.Background(), []string{"2", "1"})
	require.NoError(t, err)
	assert.Len(t, requested, 1, "second lookup is served from cache")
}

func TestGetProductsByIDsShape(t *testing.T) {
	f := newFakeVendor(t)
	f.handle(http.MethodPost, "/product_search/v5/products/info", func(w http.ResponseWriter, r *http.Request) {
		writeRaw(w, http.StatusOK, `{"data":{"1":"not a product"}}`)
	})
	_, err := f.loggedIn(WithProductCache(nil)).GetProductsByIDs(context.Background(), []string{"1"})
	var shapeErr *DataShapeError
	assert.True(t, errors.As(err, &shapeErr), "got %v", err)
}

func TestReports(t *testing.T) {
	from := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)

	f := newFakeVendor(t)
	f.handle(http.MethodGet, "/reporting/v4/order-history", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "02/01/2024", q.Get("fromDate"))
		assert.Equal(t, "31/03/2024", q.Get("toDate"))
		assert.Equal(t, testSessionID, q.Get("sessionId"))
		assert.Empty(t, q.Get("groupTransactionsByOrder"))
		writeRaw(w, http.StatusOK, `{"data":[{"orderId":"a","price":10.5},{"orderId":"b"}]}`)
	})
	f.handle(http.MethodGet, "/reporting/v4/transactions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "false", r.URL.Query().Get("groupTransactionsByOrder"))
		writeRaw(w, http.StatusOK, `{"data":[]}`)
	})
	c := f.loggedIn()

	history, err := c.GetOrdersHistory(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, history, 2)
	price, ok := history[0].Decimal("price")
	require.True(t, ok)
	assert.Equal(t, "10.5", price.String())

	txs, err := c.GetTransactions(context.Background(), from, to)
	require.NoError(t, err)
	assert.NotNil(t, txs)
	assert.Empty(t, txs)

	_, err = c.GetTransactions(context.Background(), to, from)
	assert.Error(t, err)
}

func TestReportsShapeError(t *testing.T) {
	f := newFakeVendor(t)
	f.handle(http.MethodGet, "/reporting/v4/transactions", func(w http.ResponseWriter, r *http.Request) {
		writeRaw(w, http.StatusOK, `{"data":{"a":1}}`)
	})
	now := time.Now()
	_, err := f.loggedIn().GetTransactions(context.Background(), now, now)
	var shapeErr *DataShapeError
	assert.True(t, errors.As(err, &shapeErr), "got %v", err)
}
