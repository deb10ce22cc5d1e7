package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/degiro/pkg/sdk/degiro"
)

func TestWriteTransactions(t *testing.T) {
	records := []degiro.Record{
		{"id": json.Number("42"), "date": "2026-01-05T10:00:00+01:00", "productId": json.Number("331868"),
			"buysell": "B", "quantity": json.Number("3"), "price": json.Number("12.50"), "total": json.Number("-37.5")},
		{"id": json.Number("43"), "buysell": "S", "counterParty": "MK, Inc"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, records))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id,date,product_id,buy_sell,quantity,price,total"))
	assert.Equal(t, "42,2026-01-05T10:00:00+01:00,331868,B,3,12.50,-37.5,,,,,", lines[1])
	assert.Contains(t, lines[2], `"MK, Inc"`)
}

func TestOrderHistoryRows(t *testing.T) {
	rows := OrderHistoryRows([]degiro.Record{
		{"orderId": "abc", "size": json.Number("10"), "status": "CONFIRMED", "stopPrice": nil},
	})
	require.Len(t, rows, 1)
	assert.Equal(t, "abc", rows[0].OrderID)
	assert.Equal(t, "10", rows[0].Size)
	assert.Equal(t, "CONFIRMED", rows[0].Status)
	assert.Empty(t, rows[0].StopPrice)

	var buf bytes.Buffer
	require.NoError(t, WriteOrderHistory(&buf, []degiro.Record{{"orderId": "abc"}}))
	assert.True(t, strings.HasPrefix(buf.String(), "created,order_id,"))
}
