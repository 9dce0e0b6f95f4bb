package internal

import (
	"github.com/dangazineu/gbdx/internal/logging"
	"github.com/dangazineu/gbdx/internal/registry"
	"github.com/spf13/cobra"
)

func NewCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Catalog commands",
	}

	footprint := &cobra.Command{
		Use:     "strip-footprint",
		Aliases: []string{"strip_footprint"},
		Short:   "Show the WKT footprint of a catalog strip",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalogID, _ := cmd.Flags().GetString("catalog-id")
			client, err := newAPIClient(cmd, logging.FromContext(cmd.Context()))
			if err != nil {
				return err
			}
			wkt, err := client.StripFootprint(cmd.Context(), catalogID)
			if err != nil {
				return err
			}
			return showValue(cmd.OutOrStdout(), wkt)
		},
	}
	addCatalogIDFlag(footprint, "Catalog ID of the strip to display.")

	cmd.AddCommand(footprint)
	return cmd
}

func NewIdahoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "idaho",
		Short: "IDAHO image commands",
	}

	images := apiCommand("get-images-by-catid", "Retrieve the IDAHO images of a catalog strip", cobra.NoArgs,
		func(cmd *cobra.Command, client *registry.Client, _ []string) ([]byte, error) {
			catalogID, _ := cmd.Flags().GetString("catalog-id")
			return client.IdahoImagesByCatalogID(cmd.Context(), catalogID)
		})
	images.Aliases = []string{"get_images_by_catid"}
	addCatalogIDFlag(images, "Catalog ID to fetch IDAHO images for.")

	cmd.AddCommand(images)
	return cmd
}

func addCatalogIDFlag(cmd *cobra.Command, usage string) {
	cmd.Flags().StringP("catalog-id", "c", "", usage)
	_ = cmd.MarkFlagRequired("catalog-id")
}
