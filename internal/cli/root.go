// Package cli est l'interface terminal de cartwatch : un viewer de panier et de catalogue
// qui suit le serveur par websocket, ou par relecture avec --no-push.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cedra_shop_sync/internal/viewer"
)

// RootOptions regroupe les flags globaux.
type RootOptions struct {
	Server string
	NoPush bool
	Poll   time.Duration
	Format string // "text" | "json"
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cartwatch",
		Short: "Viewer terminal des paniers et du catalogue",
		Long: `Viewer terminal des paniers et du catalogue.

Chaque commande lit l'état par l'API. Les commandes watch suivent ensuite les
snapshots poussés par la websocket /ws, ou relisent périodiquement avec --no-push.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("format %q invalide: valeurs possibles %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Server, "server", "s", "http://localhost:8080", "adresse du serveur")
	cmd.PersistentFlags().BoolVar(&opts.NoPush, "no-push", false, "ne pas ouvrir de websocket (relecture uniquement)")
	cmd.PersistentFlags().DurationVar(&opts.Poll, "poll", viewer.DefaultPollInterval, "intervalle de relecture sans websocket")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "format de sortie (text|json)")

	cmd.AddCommand(NewCartCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) api() *viewer.API {
	return viewer.NewAPI(o.Server, nil)
}

func (o *RootOptions) subscriber() *viewer.Subscriber {
	if o.NoPush {
		return nil
	}
	return viewer.NewSubscriber(o.Server)
}
