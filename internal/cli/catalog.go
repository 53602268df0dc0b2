package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"cedra_shop_sync/internal/models"
	"cedra_shop_sync/internal/viewer"
)

type listOptions struct {
	*RootOptions
	viewer.ListOptions
}

func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Lister et suivre le catalogue",
	}

	opts := &listOptions{RootOptions: rootOpts}
	list := &cobra.Command{
		Use:   "list",
		Short: "Lister une page du catalogue",
		Long: `Lister une page du catalogue.

--query accepte category:<nom>, status:true|false ou un texte libre.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := opts.api().ListProducts(cmd.Context(), opts.ListOptions)
			if err != nil {
				return err
			}
			if err := writeProducts(cmd.OutOrStdout(), opts.Format, page.Payload); err != nil {
				return err
			}
			if opts.Format == "text" {
				fmt.Fprintf(cmd.OutOrStdout(), "page %d/%d\n", page.Page, page.TotalPages)
			}
			return nil
		},
	}
	list.Flags().IntVar(&opts.Page, "page", 1, "numéro de page")
	list.Flags().IntVar(&opts.Limit, "limit", 10, "produits par page")
	list.Flags().StringVar(&opts.Sort, "sort", "", "tri par prix (asc|desc)")
	list.Flags().StringVar(&opts.Query, "query", "", "filtre")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Suivre la première page du catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			view := viewer.NewCatalogView(rootOpts.api())
			view.OnChange(func(products []models.Product) {
				fmt.Fprintln(out, "----")
				_ = writeProducts(out, rootOpts.Format, products)
			})
			return viewer.WatchCatalog(cmd.Context(), view, rootOpts.subscriber(), rootOpts.Poll)
		},
	})

	return cmd
}
