package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"record-storefront/internal/chain"
	"record-storefront/internal/format"
	"record-storefront/internal/record"
	"record-storefront/internal/storefront"
)

func recordsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "records",
		Short: "List the catalog page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := mustConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := commonRun(cfg)
			if err != nil {
				return err
			}

			sf := newStorefront(cfg, logger, record.NewReader(newRPC(cfg)), nil)
			view, err := sf.Store(cmd.Context())
			if err != nil {
				return err
			}
			return printCollection(view)
		},
	}
}

func ownedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "owned <account>",
		Short: "List the records owned by an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := chain.ParseAddress(args[0])
			if err != nil {
				return err
			}
			cfg, err := mustConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := commonRun(cfg)
			if err != nil {
				return err
			}

			sf := newStorefront(cfg, logger, record.NewReader(newRPC(cfg)), nil)
			view, err := sf.MyRecords(cmd.Context(), &account)
			if err != nil {
				return err
			}
			return printCollection(view)
		},
	}
}

func priceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "price <wei>",
		Short: "Format a wei amount as ETH",
		Args:  cobra.ExactArgs(1),
		// No config needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), format.FormatPrice(args[0]))
		},
	}
}

func printCollection(view storefront.CollectionView) error {
	if view.State != storefront.StateReady {
		fmt.Println(view.Message)
		if view.State == storefront.StateError {
			return fmt.Errorf("load records failed")
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tARTIST\tCOLLECTION\tSYMBOL\tTOKEN")
	for _, c := range view.Cards {
		token := "-"
		if c.TokenID != nil {
			token = c.TokenID.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			c.Record.RecordAddress, c.Record.ArtistName, c.Record.CollectionName, c.Record.Symbol, token)
	}
	return w.Flush()
}
