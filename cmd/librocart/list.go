package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"librocart/internal/filter"
)

func newListCmd(a *app) *cobra.Command {
	var query, genre, sortKey string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the catalog, optionally filtered and sorted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, closeStorage, err := a.openSession(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer closeStorage()

			view := session.View(filter.Criteria{
				Query: query,
				Genre: genre,
				Sort:  filter.ParseSortKey(sortKey),
			})

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tGENRE\tPRICE\tAVAILABLE")
			for _, item := range view.Items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t$ %s\t%d\n",
					item.ID, item.Title, item.Author, item.Genre, session.FormatPrice(item.Price), item.Available)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d results\n", view.Count)
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "match title or author")
	cmd.Flags().StringVarP(&genre, "genre", "g", "", "exact genre")
	cmd.Flags().StringVarP(&sortKey, "sort", "s", string(filter.SortDefault), "default, price-asc, price-desc or title-asc")
	return cmd
}

func newGenresCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "genres",
		Short: "List the catalog genres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, closeStorage, err := a.openSession(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer closeStorage()

			for _, g := range session.Genres() {
				fmt.Fprintln(a.out, g)
			}
			return nil
		},
	}
}
