package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/carniceria-aranda/backend/internal/domain"
	"github.com/carniceria-aranda/backend/internal/infrastructure/archive"
	"github.com/carniceria-aranda/backend/internal/usecase"
	"github.com/spf13/cobra"
)

func newExtractCommand(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:     "extract <mensaje>",
		Aliases: []string{"extraer"},
		Short:   "Extrae los productos y cantidades de un mensaje",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := cc.snapshot(cmd)
			if err != nil {
				return err
			}

			result := snapshot.Extractor.Extract(cmd.Context(), strings.Join(args, " "))
			return cc.print(cmd.OutOrStdout(), result, func(w io.Writer) {
				for _, item := range result.Items {
					fmt.Fprintf(w, "%-24s %10s  [%s] %q\n", item.Product, item.Quantity, item.Grammar, item.Segment)
				}
				for _, d := range result.Diagnostics {
					fmt.Fprintf(w, "! %-16s %q", d.Kind, d.Segment)
					if len(d.Candidates) > 0 {
						fmt.Fprintf(w, " -> %s", strings.Join(d.Candidates, ", "))
					}
					fmt.Fprintln(w)
				}
				fmt.Fprintf(w, "%s, %s\n",
					plural(len(result.Items), "producto", "productos"),
					plural(len(result.Diagnostics), "aviso", "avisos"))
			})
		},
	}
}

func newResolveCommand(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:     "resolve <frase>",
		Aliases: []string{"resolver"},
		Short:   "Busca un producto del catálogo a partir de una frase",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := cc.snapshot(cmd)
			if err != nil {
				return err
			}

			res := snapshot.Resolver.Resolve(cmd.Context(), strings.Join(args, " "))
			return cc.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				switch res.Kind {
				case domain.ResolutionExact:
					fmt.Fprintf(w, "%s (%s, %.2f)\n", res.Product, res.Stage, res.Score)
				case domain.ResolutionAmbiguous:
					fmt.Fprintf(w, "ambiguo (%s): %s\n", res.Stage, strings.Join(res.Candidates, ", "))
				default:
					if len(res.Suggestions) == 0 {
						fmt.Fprintln(w, "no encontrado")
						return
					}
					fmt.Fprintf(w, "no encontrado, ¿quizás %s?\n", strings.Join(res.Suggestions, ", "))
				}
			})
		},
	}
}

type timeResult struct {
	Input      string     `json:"input"`
	Normalized string     `json:"normalized"`
	PickupAt   *time.Time `json:"pickup_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

func newTimeCommand(cc *cliContext) *cobra.Command {
	var now string

	cmd := &cobra.Command{
		Use:     "hora <texto>",
		Aliases: []string{"time"},
		Short:   "Normaliza una expresión de día y hora de recogida",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := time.Now()
			if now != "" {
				parsed, err := time.Parse(time.RFC3339, now)
				if err != nil {
					return fmt.Errorf("--now: %w", err)
				}
				ref = parsed
			}

			text := strings.Join(args, " ")
			result := timeResult{Input: text, Normalized: usecase.NormalizeTemporalText(text)}
			pickup, err := usecase.ParsePickupTime(text, ref)
			if err != nil {
				result.Error = err.Error()
			} else {
				result.PickupAt = &pickup
			}

			return cc.print(cmd.OutOrStdout(), result, func(w io.Writer) {
				fmt.Fprintf(w, "normalizado: %s\n", result.Normalized)
				if result.PickupAt != nil {
					fmt.Fprintf(w, "recogida:    %s\n", usecase.FormatPickupTime(*result.PickupAt))
				} else {
					fmt.Fprintf(w, "error:       %s\n", result.Error)
				}
			})
		},
	}
	cmd.Flags().StringVar(&now, "now", "", "reference time in RFC 3339 (default: current time)")
	return cmd
}

func newCatalogCommand(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:     "catalogo",
		Aliases: []string{"catalog"},
		Short:   "Lista el catálogo y las claves que colisionan",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := cc.snapshot(cmd)
			if err != nil {
				return err
			}

			products := snapshot.Catalog.Products()
			collisions := snapshot.Index.Collisions()
			out := struct {
				Products   []domain.Product    `json:"products"`
				Collisions map[string][]string `json:"collisions,omitempty"`
			}{Products: products, Collisions: collisions}

			return cc.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				for _, p := range products {
					fmt.Fprintf(w, "%-28s %8s €/%s\n", p.Name, p.Price.StringFixed(2), p.PriceUnit)
				}
				for key, names := range collisions {
					fmt.Fprintf(w, "! clave %q compartida por %s\n", key, strings.Join(names, ", "))
				}
			})
		},
	}
}

func newOrdersCommand(cc *cliContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "pedidos <usuario>",
		Aliases: []string{"orders"},
		Short:   "Lista los pedidos confirmados de un cliente",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, err := archive.Open(cc.cfg.Archive.Path)
			if err != nil {
				return err
			}
			defer orders.Close()

			list, err := orders.ListByUser(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			return cc.print(cmd.OutOrStdout(), list, func(w io.Writer) {
				if len(list) == 0 {
					fmt.Fprintln(w, "sin pedidos")
					return
				}
				for _, o := range list {
					fmt.Fprintf(w, "%s  %-20s %s  %s€\n", o.ID, o.CustomerName,
						usecase.FormatPickupTime(o.PickupAt), o.Receipt.Total.StringFixed(2))
				}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of orders")
	return cmd
}
