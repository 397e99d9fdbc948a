package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/CK6170/calunc-go/internal/records"
	"github.com/CK6170/calunc-go/modern"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect stored calculations",
	Long:  `Lists and prints calculations kept in the records store. Only the sqlite driver keeps records between runs.`,
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored calculations",
	Args:  cobra.NoArgs,
	RunE:  runRecordsList,
}

var recordsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a stored calculation",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsShow,
}

func init() {
	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsShowCmd)
	rootCmd.AddCommand(recordsCmd)
}

func openStore() (records.Store, error) {
	if cfg.Store.Driver != "sqlite" {
		logger.Warn("records store is not persistent", "driver", cfg.Store.Driver)
	}
	return records.Open(cfg.Store.Driver, cfg.Store.Path)
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No records.")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tCREATED")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Kind, r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func runRecordsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	data, err := modern.EncodeSaved(modern.Kind(rec.Kind), rec.Input, rec.Result)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
