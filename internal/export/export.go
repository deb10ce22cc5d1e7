// Package export writes report records as CSV.
package export

import (
	"io"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/betbot/degiro/pkg/sdk/degiro"
)

// TransactionRow is one line of the transactions report.
type TransactionRow struct {
	ID                  string `csv:"id"`
	Date                string `csv:"date"`
	ProductID           string `csv:"product_id"`
	Action              string `csv:"buy_sell"`
	Quantity            string `csv:"quantity"`
	Price               string `csv:"price"`
	Total               string `csv:"total"`
	TotalInBaseCurrency string `csv:"total_in_base_currency"`
	FeeInBaseCurrency   string `csv:"fee_in_base_currency"`
	FxRate              string `csv:"fx_rate"`
	OrderTypeID         string `csv:"order_type_id"`
	CounterParty        string `csv:"counter_party"`
}

// OrderHistoryRow is one line of the order history report.
type OrderHistoryRow struct {
	Created         string `csv:"created"`
	OrderID         string `csv:"order_id"`
	ProductID       string `csv:"product_id"`
	Action          string `csv:"buy_sell"`
	Size            string `csv:"size"`
	Price           string `csv:"price"`
	StopPrice       string `csv:"stop_price"`
	OrderTypeID     string `csv:"order_type_id"`
	OrderTimeTypeID string `csv:"order_time_type_id"`
	TotalTraded     string `csv:"total_traded_size"`
	Status          string `csv:"status"`
	Type            string `csv:"type"`
}

func TransactionRows(records []degiro.Record) []*TransactionRow {
	rows := make([]*TransactionRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, &TransactionRow{
			ID:                  r.String("id"),
			Date:                r.String("date"),
			ProductID:           r.String("productId"),
			Action:              r.String("buysell"),
			Quantity:            r.String("quantity"),
			Price:               r.String("price"),
			Total:               r.String("total"),
			TotalInBaseCurrency: r.String("totalInBaseCurrency"),
			FeeInBaseCurrency:   r.String("feeInBaseCurrency"),
			FxRate:              r.String("fxRate"),
			OrderTypeID:         r.String("orderTypeId"),
			CounterParty:        r.String("counterParty"),
		})
	}
	return rows
}

func OrderHistoryRows(records []degiro.Record) []*OrderHistoryRow {
	rows := make([]*OrderHistoryRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, &OrderHistoryRow{
			Created:         r.String("created"),
			OrderID:         r.String("orderId"),
			ProductID:       r.String("productId"),
			Action:          r.String("buysell"),
			Size:            r.String("size"),
			Price:           r.String("price"),
			StopPrice:       r.String("stopPrice"),
			OrderTypeID:     r.String("orderTypeId"),
			OrderTimeTypeID: r.String("orderTimeTypeId"),
			TotalTraded:     r.String("totalTradedSize"),
			Status:          r.String("status"),
			Type:            r.String("type"),
		})
	}
	return rows
}

// WriteTransactions writes a header line followed by one line per record.
func WriteTransactions(w io.Writer, records []degiro.Record) error {
	return errors.Wrap(gocsv.Marshal(TransactionRows(records), w), "export transactions")
}

func WriteOrderHistory(w io.Writer, records []degiro.Record) error {
	return errors.Wrap(gocsv.Marshal(OrderHistoryRows(records), w), "export order history")
}
