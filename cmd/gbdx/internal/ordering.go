package internal

import (
	"github.com/dangazineu/gbdx/internal/logging"
	"github.com/dangazineu/gbdx/internal/registry"
	"github.com/spf13/cobra"
)

func NewOrderingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ordering",
		Short: "Ordering commands",
	}

	order := &cobra.Command{
		Use:   "order",
		Short: "Order the given catalog IDs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids, _ := cmd.Flags().GetStringArray("catalog-id")
			client, err := newAPIClient(cmd, logging.FromContext(cmd.Context()))
			if err != nil {
				return err
			}
			orderID, err := client.Order(cmd.Context(), ids)
			if err != nil {
				return err
			}
			return showValue(cmd.OutOrStdout(), orderID)
		},
	}
	order.Flags().StringArrayP("catalog-id", "c", nil, "Catalog ID of a strip to order. May be repeated.")
	_ = order.MarkFlagRequired("catalog-id")

	status := apiCommand("status", "Show the acquisitions of an order", cobra.NoArgs,
		func(cmd *cobra.Command, client *registry.Client, _ []string) ([]byte, error) {
			orderID, _ := cmd.Flags().GetString("order-id")
			return client.OrderStatus(cmd.Context(), orderID)
		})
	status.Flags().StringP("order-id", "o", "", "Order ID to show.")
	_ = status.MarkFlagRequired("order-id")

	cmd.AddCommand(order, status)
	return cmd
}
