package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/degiro/pkg/sdk/degiro"
)

const cliSessionID = "cli-sid"

func newVendor(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("/login/secure/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: cliSessionID, Path: "/"})
		reply(w, map[string]any{"status": 0, "statusText": "success"})
	})
	mux.HandleFunc("/login/secure/config", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"data": map[string]any{
			"paUrl":      srv.URL + "/pa/",
			"tradingUrl": srv.URL + "/trading/",
		}})
	})
	mux.HandleFunc("/pa/client", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"data": map[string]any{"id": 5, "intAccount": 1001, "username": "cli"}})
	})
	mux.HandleFunc("/trading/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/trading/v5/update/1001"):
			reply(w, map[string]any{"cashFunds": map[string]any{"value": []any{
				map[string]any{"id": "2", "value": []any{
					map[string]any{"name": "currencyCode", "value": "EUR"},
					map[string]any{"name": "value", "value": 10.5},
				}},
			}}})
		case strings.HasPrefix(r.URL.Path, "/trading/v5/checkOrder"):
			reply(w, map[string]any{"data": map[string]any{"confirmationId": "conf-1", "freeSpaceNew": 100}})
		default:
			http.NotFound(w, r)
		}
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setupEnv(t *testing.T, vendorURL string) string {
	t.Helper()
	journalPath := filepath.Join(t.TempDir(), "journal.db")
	t.Setenv("DEGIRO_BASE_URL", vendorURL)
	t.Setenv("DEGIRO_USER", "cli")
	t.Setenv("DEGIRO_PASS", "pw")
	t.Setenv("DEGIRO_JOURNAL", journalPath)
	t.Setenv("DEGIRO_SESSION_STORE", "none")
	t.Setenv("DEGIRO_SID", "")
	t.Setenv("DEGIRO_DEBUG", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FILE", "")
	return journalPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCashCommand(t *testing.T) {
	setupEnv(t, newVendor(t).URL)

	out, err := execute(t, "cash")
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 10.5, rows[0]["value"])
	assert.NotContains(t, rows[0], "currencyCode")
}

func TestOrderCheckIsJournaled(t *testing.T) {
	setupEnv(t, newVendor(t).URL)

	out, err := execute(t, "order", "check", "-a", "buy", "-p", "331868", "-s", "2", "--price", "10.25")
	require.NoError(t, err)
	assert.Contains(t, out, `"confirmationId": "conf-1"`)

	out, err = execute(t, "journal", "-n", "5")
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "checked"`)
	assert.Contains(t, out, `"price": "10.25"`)
}

func TestOrderFlagValidation(t *testing.T) {
	setupEnv(t, newVendor(t).URL)

	_, err := execute(t, "order", "check", "-a", "hold", "-p", "1", "-s", "1", "--price", "1")
	assert.Error(t, err)
	_, err = execute(t, "order", "check", "-a", "buy", "-p", "1", "-s", "1")
	assert.Error(t, err, "limit order without price")
	_, err = execute(t, "order", "place", "-a", "buy", "-p", "1", "-s", "1", "--price", "1")
	assert.Error(t, err, "place without --yes")
}

func TestOrderFlagsBuildOrder(t *testing.T) {
	f := orderFlags{action: "sell", orderType: "stop-loss", timeType: "gtc", productID: "9", size: "1.5", stopPrice: "3"}
	o, err := f.order()
	require.NoError(t, err)
	assert.Equal(t, degiro.Sell, o.Action)
	assert.Equal(t, degiro.StopLoss, o.OrderType)
	assert.Equal(t, degiro.GTC, o.TimeType)
	assert.Equal(t, "1.5", o.Size.String())
	assert.False(t, o.Price.Valid)
	assert.True(t, o.StopPrice.Valid)

	f.size = "lots"
	_, err = f.order()
	assert.Error(t, err)
}

func TestReportWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 18, 30, 0, 0, time.Local)
	tests := []struct {
		name     string
		flags    reportFlags
		wantFrom string
		wantTo   string
		wantErr  bool
	}{
		{name: "defaults", wantFrom: "2026-02-13", wantTo: "2026-03-15"},
		{name: "explicit", flags: reportFlags{from: "2026-01-01", to: "2026-01-31"}, wantFrom: "2026-01-01", wantTo: "2026-01-31"},
		{name: "only to", flags: reportFlags{to: "2026-01-31"}, wantFrom: "2026-01-01", wantTo: "2026-01-31"},
		{name: "bad", flags: reportFlags{from: "31/01/2026"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := tt.flags.window(now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFrom, from.Format(dateFlagLayout))
			assert.Equal(t, tt.wantTo, to.Format(dateFlagLayout))
		})
	}
}

func TestOpenPositions(t *testing.T) {
	rows := []degiro.Record{
		{"id": "1", "size": json.Number("0")},
		{"id": "2", "size": json.Number("3")},
		{"id": "3"},
	}
	got := openPositions(rows)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].String("id"))
	assert.Len(t, rows, 3)
}

func TestJournalDisabled(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1")
	t.Setenv("DEGIRO_JOURNAL", "")
	_, err := execute(t, "journal")
	assert.Error(t, err)
}
