package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cedra_shop_sync/internal/models"
	"cedra_shop_sync/internal/viewer"
)

// mutation est une opération de panier envoyée par CartView.Mutate.
type mutation func(ctx context.Context, api *viewer.API, cid string) error

func NewCartCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Créer, afficher, suivre et modifier un panier",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Créer un panier vide",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cart, err := opts.api().CreateCart(cmd.Context())
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), cart)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cart.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <cid>",
		Short: "Afficher un panier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view := viewer.NewCartView(opts.api(), args[0])
			if err := view.Load(cmd.Context()); err != nil {
				return err
			}
			return writeCart(cmd.OutOrStdout(), opts.Format, view.State())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "watch <cid>",
		Short: "Suivre un panier en temps réel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			view := viewer.NewCartView(opts.api(), args[0])
			view.OnChange(func(s viewer.CartState) {
				fmt.Fprintln(out, "----")
				_ = writeCart(out, opts.Format, s)
			})
			return viewer.WatchCart(cmd.Context(), view, opts.subscriber(), opts.Poll)
		},
	})

	cmd.AddCommand(mutationCommand(opts, "add <cid> <pid>", "Ajouter une unité d'un produit", 2,
		func(args []string) (mutation, error) {
			return func(ctx context.Context, api *viewer.API, cid string) error {
				_, err := api.AddItem(ctx, cid, args[1])
				return err
			}, nil
		}))

	cmd.AddCommand(mutationCommand(opts, "set <cid> <pid> <quantité>", "Fixer la quantité d'une ligne", 3,
		func(args []string) (mutation, error) {
			qty, err := strconv.Atoi(args[2])
			if err != nil {
				return nil, fmt.Errorf("quantité %q invalide", args[2])
			}
			return func(ctx context.Context, api *viewer.API, cid string) error {
				_, err := api.SetQuantity(ctx, cid, args[1], qty)
				return err
			}, nil
		}))

	cmd.AddCommand(mutationCommand(opts, "rm <cid> <pid>", "Retirer une ligne", 2,
		func(args []string) (mutation, error) {
			return func(ctx context.Context, api *viewer.API, cid string) error {
				_, err := api.RemoveItem(ctx, cid, args[1])
				return err
			}, nil
		}))

	replace := mutationCommand(opts, "replace <cid> [<pid>=<quantité>...]", "Remplacer toutes les lignes", -1,
		func(args []string) (mutation, error) {
			lines, err := parseLines(args[1:])
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context, api *viewer.API, cid string) error {
				_, err := api.ReplaceItems(ctx, cid, lines)
				return err
			}, nil
		})
	replace.Args = cobra.MinimumNArgs(1)
	cmd.AddCommand(replace)

	cmd.AddCommand(mutationCommand(opts, "empty <cid>", "Vider le panier (l'id est conservé)", 1,
		func(args []string) (mutation, error) {
			return func(ctx context.Context, api *viewer.API, cid string) error {
				_, err := api.EmptyCart(ctx, cid)
				return err
			}, nil
		}))

	cmd.AddCommand(mutationCommand(opts, "delete <cid>", "Supprimer définitivement le panier", 1,
		func(args []string) (mutation, error) {
			return func(ctx context.Context, api *viewer.API, cid string) error {
				return api.DeleteCart(ctx, cid)
			}, nil
		}))

	return cmd
}

// mutationCommand construit une commande qui applique une mutation puis affiche le panier relu.
func mutationCommand(opts *RootOptions, use, short string, nargs int, build func(args []string) (mutation, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, err := build(args)
			if err != nil {
				return err
			}
			view := viewer.NewCartView(opts.api(), args[0])
			if err := view.Mutate(cmd.Context(), fn); err != nil {
				return err
			}
			return writeCart(cmd.OutOrStdout(), opts.Format, view.State())
		},
	}
	if nargs >= 0 {
		cmd.Args = cobra.ExactArgs(nargs)
	}
	return cmd
}

// parseLines lit des arguments "pid=quantité".
func parseLines(args []string) ([]models.CartLine, error) {
	lines := make([]models.CartLine, 0, len(args))
	for _, arg := range args {
		pid, raw, ok := strings.Cut(arg, "=")
		if !ok || pid == "" {
			return nil, fmt.Errorf("ligne %q invalide: format attendu <pid>=<quantité>", arg)
		}
		qty, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("quantité %q invalide pour %s", raw, pid)
		}
		lines = append(lines, models.CartLine{ProductID: pid, Quantity: qty})
	}
	return lines, nil
}
