package main

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/betbot/degiro/internal/export"
	"github.com/betbot/degiro/pkg/sdk/degiro"
)

const dateFlagLayout = "2006-01-02"

type sessionView struct {
	Account     int64       `json:"account"`
	UserToken   int64       `json:"userToken"`
	Username    string      `json:"username,omitempty"`
	DisplayName string      `json:"displayName,omitempty"`
	StartedAt   time.Time   `json:"startedAt"`
	URLs        degiro.URLs `json:"urls"`
}

func viewSession(s degiro.Session) sessionView {
	v := sessionView{Account: s.Account, UserToken: s.UserToken, StartedAt: s.StartedAt, URLs: s.URLs}
	if s.ClientInfo != nil {
		v.Username = s.ClientInfo.Username
		v.DisplayName = s.ClientInfo.DisplayName
	}
	return v
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in with username and password and store the session",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if a.cfg.Credentials.Username == "" || a.cfg.Credentials.Password == "" {
				return errors.New("login needs DEGIRO_USER and DEGIRO_PASS")
			}
			c, err := a.newClient()
			if err != nil {
				return err
			}
			s, err := c.Login(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(viewSession(s))
		}),
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget it",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.Logout(cmd.Context()); err != nil {
				return err
			}
			a.printf("logged out\n")
			return nil
		}),
	}
}

func newSessionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the current session, logging in when needed",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(viewSession(c.Session()))
		}),
	}
}

func newCashCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cash",
		Short: "List cash funds per currency",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := c.GetCashFunds(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(rows)
		}),
	}
}

func newPortfolioCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "List portfolio positions",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := c.GetPortfolio(cmd.Context())
			if err != nil {
				return err
			}
			if !all {
				rows = openPositions(rows)
			}
			return a.printJSON(rows)
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "include closed positions (size 0)")
	return cmd
}

func openPositions(rows []degiro.Record) []degiro.Record {
	out := rows[:0:0]
	for _, r := range rows {
		if size, ok := r.Decimal("size"); ok && size.IsZero() {
			continue
		}
		out = append(out, r)
	}
	return out
}

func newOrdersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List open orders and recent history",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			orders, err := c.GetOrders(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(orders)
		}),
	}
}

func newTasksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List pending account tasks",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := c.GetTasks(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(rows)
		}),
	}
}

type reportFlags struct {
	from, to string
	csv      bool
}

func (f *reportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "start date YYYY-MM-DD (default: 30 days before --to)")
	cmd.Flags().StringVar(&f.to, "to", "", "end date YYYY-MM-DD (default: today)")
	cmd.Flags().BoolVar(&f.csv, "csv", false, "write CSV instead of JSON")
}

func (f *reportFlags) window(now time.Time) (time.Time, time.Time, error) {
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	if f.to != "" {
		t, err := time.ParseInLocation(dateFlagLayout, f.to, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, errors.Wrap(err, "--to")
		}
		to = t
	}
	from := to.AddDate(0, 0, -30)
	if f.from != "" {
		t, err := time.ParseInLocation(dateFlagLayout, f.from, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, errors.Wrap(err, "--from")
		}
		from = t
	}
	return from, to, nil
}

func newHistoryCmd(a *app) *cobra.Command {
	var f reportFlags
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Order history report for a date range",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			from, to, err := f.window(time.Now())
			if err != nil {
				return err
			}
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := c.GetOrdersHistory(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			if f.csv {
				return export.WriteOrderHistory(a.out, rows)
			}
			return a.printJSON(rows)
		}),
	}
	f.register(cmd)
	return cmd
}

func newTransactionsCmd(a *app) *cobra.Command {
	var f reportFlags
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Transactions report for a date range",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			from, to, err := f.window(time.Now())
			if err != nil {
				return err
			}
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := c.GetTransactions(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			if f.csv {
				return export.WriteTransactions(a.out, rows)
			}
			return a.printJSON(rows)
		}),
	}
	f.register(cmd)
	return cmd
}
