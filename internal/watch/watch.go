// Package watch is a terminal quote board for a set of quotecast issue ids.
package watch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/betbot/degiro/pkg/sdk/degiro"
)

// QuoteSource is satisfied by *degiro.Client.
type QuoteSource interface {
	GetAskBidPrice(ctx context.Context, issueID string) (degiro.Quote, error)
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	columnStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))

	upStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	downStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	hintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238"))
)

type row struct {
	quote   degiro.Quote
	prev    decimal.Decimal
	hasPrev bool
	err     error
	updated time.Time
	// inFlight is set while a GetAskBidPrice call for the row is pending.
	inFlight bool
}

type Model struct {
	ctx      context.Context
	src      QuoteSource
	ids      []string
	interval time.Duration
	rows     map[string]*row
	polls    int
	now      func() time.Time
}

type tickMsg time.Time

type quoteMsg struct {
	issueID string
	quote   degiro.Quote
	err     error
}

func NewModel(ctx context.Context, src QuoteSource, ids []string, interval time.Duration) Model {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	rows := make(map[string]*row, len(ids))
	for _, id := range ids {
		rows[id] = &row{}
	}
	return Model{ctx: ctx, src: src, ids: ids, interval: interval, rows: rows, now: time.Now}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchAll(), m.tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "r":
			return m, m.fetchAll()
		}

	case tickMsg:
		return m, tea.Batch(m.fetchAll(), m.tick())

	case quoteMsg:
		r, ok := m.rows[msg.issueID]
		if !ok {
			return m, nil
		}
		m.polls++
		r.inFlight = false
		r.updated = m.now()
		if msg.err != nil {
			r.err = msg.err
			return m, nil
		}
		if last, ok := r.quote.Last(); ok {
			r.prev, r.hasPrev = last, true
		}
		r.quote, r.err = msg.quote, nil
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("DEGIRO quotes | %d issues | every %s", len(m.ids), m.interval)))
	b.WriteString("\n\n")

	var t strings.Builder
	t.WriteString(columnStyle.Render(fmt.Sprintf("%-14s %12s %12s %12s %10s", "ISSUE", "BID", "ASK", "LAST", "TIME")))
	for _, id := range m.ids {
		t.WriteString("\n")
		t.WriteString(m.renderRow(id, m.rows[id]))
	}
	b.WriteString(borderStyle.Render(t.String()))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("r refresh  q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderRow(id string, r *row) string {
	if r.quote == nil && r.err == nil {
		return fmt.Sprintf("%-14s %12s %12s %12s %10s", id, "...", "...", "...", "")
	}
	if r.quote == nil {
		return fmt.Sprintf("%-14s ", id) + errStyle.Render(truncate(r.err.Error(), 48))
	}
	line := fmt.Sprintf("%-14s %12s %12s ", id, price(r.quote.Bid()), price(r.quote.Ask()))
	last := fmt.Sprintf("%12s", price(r.quote.Last()))
	if cur, ok := r.quote.Last(); ok && r.hasPrev {
		switch cur.Cmp(r.prev) {
		case 1:
			last = upStyle.Render(last)
		case -1:
			last = downStyle.Render(last)
		}
	}
	line += last + fmt.Sprintf(" %10s", r.quote.LastTime())
	if r.err != nil {
		// stale: last good quote with the latest error
		line += " " + errStyle.Render("!")
	}
	return line
}

// fetchAll polls every issue that has no poll outstanding, so a slow
// quotecast never stacks requests across ticks.
func (m Model) fetchAll() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.ids))
	for _, id := range m.ids {
		r := m.rows[id]
		if r.inFlight {
			continue
		}
		r.inFlight = true
		cmds = append(cmds, m.fetch(id))
	}
	return tea.Batch(cmds...)
}

func (m Model) fetch(issueID string) tea.Cmd {
	return func() tea.Msg {
		q, err := m.src.GetAskBidPrice(m.ctx, issueID)
		return quoteMsg{issueID: issueID, quote: q, err: err}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, src QuoteSource, ids []string, interval time.Duration) error {
	if len(ids) == 0 {
		return fmt.Errorf("watch: at least one issue id is required")
	}
	p := tea.NewProgram(NewModel(ctx, src, ids, interval), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return err
	}
	return nil
}

func price(d decimal.Decimal, ok bool) string {
	if !ok {
		return "-"
	}
	return d.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
