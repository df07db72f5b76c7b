package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"librocart/internal/cart"
	"librocart/internal/storefront"
)

func newCartCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and change the shopping cart",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show cart lines and totals",
			Args:  cobra.NoArgs,
			RunE: a.withCart(func(ctx context.Context, s *storefront.Session, args []string) error {
				return nil
			}),
		},
		&cobra.Command{
			Use:   "add ID",
			Short: "Add one unit of an item",
			Args:  cobra.ExactArgs(1),
			RunE: a.withCart(func(ctx context.Context, s *storefront.Session, args []string) error {
				return s.Cart().AddOne(ctx, args[0])
			}),
		},
		&cobra.Command{
			Use:   "set ID QUANTITY",
			Short: "Set the quantity of a line",
			Args:  cobra.ExactArgs(2),
			RunE: a.withCart(func(ctx context.Context, s *storefront.Session, args []string) error {
				return s.Cart().SetQuantity(ctx, args[0], args[1])
			}),
		},
		&cobra.Command{
			Use:   "remove ID",
			Short: "Remove a line",
			Args:  cobra.ExactArgs(1),
			RunE: a.withCart(func(ctx context.Context, s *storefront.Session, args []string) error {
				s.Cart().Remove(ctx, args[0])
				return nil
			}),
		},
		newCartClearCmd(a),
	)
	return cmd
}

func newCartClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart after confirmation",
		Args:  cobra.NoArgs,
		RunE: a.withCart(func(ctx context.Context, s *storefront.Session, args []string) error {
			var confirmer cart.Confirmer = promptConfirmer{in: a.in, out: a.out}
			if yes {
				confirmer = cart.ConfirmFunc(func(context.Context, string) bool { return true })
			}
			s.Cart().ConfirmAndClear(ctx, confirmer)
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// withCart opens a session, runs fn and prints the resulting cart.
func (a *app) withCart(fn func(ctx context.Context, s *storefront.Session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		session, closeStorage, err := a.openSession(cmd.Context(), printNotifier{out: a.out})
		if err != nil {
			return err
		}
		defer closeStorage()

		if err := fn(cmd.Context(), session, args); err != nil {
			return err
		}
		return a.printCart(session)
	}
}

func (a *app) printCart(s *storefront.Session) error {
	view := s.CartView()
	if len(view.Lines) == 0 {
		fmt.Fprintln(a.out, "Cart is empty")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tQTY\tPRICE")
	for _, line := range view.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t$ %s\n", line.ItemID, line.Title, line.Quantity, s.FormatPrice(line.Price))
	}
	fmt.Fprintf(tw, "\t\t\t\n")
	fmt.Fprintf(tw, "Subtotal\t\t%d\t$ %s\n", view.Badge, s.FormatPrice(view.Totals.Subtotal))
	fmt.Fprintf(tw, "Shipping\t\t\t$ %s\n", s.FormatPrice(view.Totals.Shipping))
	fmt.Fprintf(tw, "Total\t\t\t$ %s\n", s.FormatPrice(view.Totals.Total))
	return tw.Flush()
}

type printNotifier struct {
	out io.Writer
}

func (p printNotifier) Notify(_ context.Context, n cart.Notice) {
	switch n.Kind {
	case cart.NoticeAdded:
		fmt.Fprintf(p.out, "Added %q (%d in cart)\n", n.Title, n.Quantity)
	case cart.NoticeRejected:
		fmt.Fprintf(p.out, "No more stock for %q: %d available\n", n.Title, n.Available)
	case cart.NoticeClamped:
		fmt.Fprintf(p.out, "Only %d of %q in stock, quantity set to %d\n", n.Available, n.Title, n.Quantity)
	case cart.NoticeRemoved:
		fmt.Fprintf(p.out, "Removed %q\n", n.Title)
	case cart.NoticeCleared:
		fmt.Fprintln(p.out, "Cart emptied")
	}
}

// promptConfirmer asks on the terminal; anything but y or yes declines.
type promptConfirmer struct {
	in  io.Reader
	out io.Writer
}

func (p promptConfirmer) Confirm(_ context.Context, prompt string) bool {
	fmt.Fprintf(p.out, "%s [y/N] ", prompt)
	answer, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "s", "si", "sí":
		return true
	default:
		return false
	}
}
