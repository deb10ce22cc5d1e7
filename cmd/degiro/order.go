package main

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/betbot/degiro/pkg/sdk/degiro"
)

type orderFlags struct {
	action    string
	orderType string
	timeType  string
	productID string
	size      string
	price     string
	stopPrice string
}

func (f *orderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.action, "action", "a", "", "buy or sell")
	cmd.Flags().StringVarP(&f.orderType, "type", "t", "limit", "limit, stoplimit, market or stoploss")
	cmd.Flags().StringVar(&f.timeType, "time", "day", "day or gtc")
	cmd.Flags().StringVarP(&f.productID, "product", "p", "", "product id")
	cmd.Flags().StringVarP(&f.size, "size", "s", "", "quantity")
	cmd.Flags().StringVar(&f.price, "price", "", "limit price")
	cmd.Flags().StringVar(&f.stopPrice, "stop", "", "stop price")
	_ = cmd.MarkFlagRequired("action")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("size")
}

func (f *orderFlags) order() (degiro.Order, error) {
	var (
		o   degiro.Order
		err error
	)
	if o.Action, err = degiro.ParseAction(f.action); err != nil {
		return o, err
	}
	if o.OrderType, err = degiro.ParseOrderType(f.orderType); err != nil {
		return o, err
	}
	if o.TimeType, err = degiro.ParseTimeType(f.timeType); err != nil {
		return o, err
	}
	o.ProductID = f.productID
	if o.Size, err = decimal.NewFromString(f.size); err != nil {
		return o, errors.Wrap(err, "--size")
	}
	if o.Price, err = optionalDecimal(f.price); err != nil {
		return o, errors.Wrap(err, "--price")
	}
	if o.StopPrice, err = optionalDecimal(f.stopPrice); err != nil {
		return o, errors.Wrap(err, "--stop")
	}
	return o, o.Validate()
}

func optionalDecimal(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func newOrderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Check, place or delete orders",
	}
	cmd.AddCommand(newOrderCheckCmd(a), newOrderPlaceCmd(a), newOrderDeleteCmd(a))
	return cmd
}

func newOrderCheckCmd(a *app) *cobra.Command {
	var f orderFlags
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate an order and show fees without placing it",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			o, err := f.order()
			if err != nil {
				return err
			}
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			checked, err := c.CheckOrder(cmd.Context(), o)
			if err != nil {
				return err
			}
			return a.printJSON(checked)
		}),
	}
	f.register(cmd)
	return cmd
}

func newOrderPlaceCmd(a *app) *cobra.Command {
	var (
		f   orderFlags
		yes bool
	)
	cmd := &cobra.Command{
		Use:   "place",
		Short: "Check and confirm an order",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			o, err := f.order()
			if err != nil {
				return err
			}
			if !yes {
				return errors.New("placing a real order needs --yes")
			}
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			placed, err := c.SetOrder(cmd.Context(), o)
			if err != nil {
				return err
			}
			return a.printJSON(placed)
		}),
	}
	f.register(cmd)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm placing the order")
	return cmd
}

func newOrderDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <order id>",
		Short: "Cancel an open order",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			ok, err := c.DeleteOrder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return errors.Errorf("order %s was not deleted", args[0])
			}
			a.printf("deleted %s\n", args[0])
			return nil
		}),
	}
}
