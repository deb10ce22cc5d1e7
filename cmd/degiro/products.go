package main

import (
	"github.com/spf13/cobra"

	"github.com/betbot/degiro/pkg/sdk/degiro"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		productType string
		opts        degiro.SearchOptions
		sortType    string
	)
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search products by name, symbol or ISIN",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			pt, err := degiro.ParseProductType(productType)
			if err != nil {
				return err
			}
			opts.Text = args[0]
			opts.ProductType = pt
			opts.SortType = degiro.SortType(sortType)
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			products, err := c.SearchProduct(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return a.printJSON(products)
		}),
	}
	cmd.Flags().StringVarP(&productType, "type", "t", "", "product type: shares, bonds, futures, options, funds, leveraged, etfs, cfds, warrants or an id")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 7, "maximum results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "result offset")
	cmd.Flags().StringVar(&opts.SortColumns, "sort", "", "sort columns, e.g. name")
	cmd.Flags().StringVar(&sortType, "order", "", "sort direction: asc or desc")
	return cmd
}

func newProductsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "products <id>...",
		Short: "Look up products by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			products, err := c.GetProductsByIDs(cmd.Context(), args)
			if err != nil {
				return err
			}
			return a.printJSON(products)
		}),
	}
}

func newQuoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <vwd issue id>",
		Short: "Fetch bid, ask and last price from quotecast",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			q, err := c.GetAskBidPrice(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(q)
		}),
	}
}
