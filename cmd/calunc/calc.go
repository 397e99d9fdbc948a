package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/CK6170/calunc-go/internal/records"
	"github.com/CK6170/calunc-go/models"
	"github.com/CK6170/calunc-go/modern"
	"github.com/CK6170/calunc-go/ui"
)

var calcCmd = &cobra.Command{
	Use:   "calc [kind] [input.json]",
	Short: "Compute a budget report",
	Long: `Computes the report for an input file. The kind may be omitted when the
file carries it ({"kind": ..., "input": ...}).`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCalc,
}

var (
	calcOut    string
	calcSave   bool
	calcJSON   bool
	calcWatch  bool
	calcRecord bool
)

func init() {
	calcCmd.Flags().StringVarP(&calcOut, "out", "o", "", "report path (default <input>_report.json)")
	calcCmd.Flags().BoolVarP(&calcSave, "save", "s", false, "write the report file")
	calcCmd.Flags().BoolVar(&calcJSON, "json", false, "print the report as JSON")
	calcCmd.Flags().BoolVarP(&calcWatch, "watch", "w", false, "recompute whenever the input file changes")
	calcCmd.Flags().BoolVar(&calcRecord, "record", false, "store the calculation in the records store")
	rootCmd.AddCommand(calcCmd)
}

func runCalc(cmd *cobra.Command, args []string) error {
	var fallback modern.Kind
	path := args[0]
	if len(args) == 2 {
		k, err := modern.ParseKind(args[0])
		if err != nil {
			return err
		}
		fallback, path = k, args[1]
	}

	run := func() error {
		in, rep, err := calcFile(path, fallback)
		if err != nil {
			return err
		}
		return emitReport(cmd, path, in, rep)
	}
	if !calcWatch {
		return run()
	}

	if err := run(); err != nil {
		logger.Error("calculation failed", "path", path, "err", err)
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	logger.Info("watching", "path", path)
	return modern.WatchFile(ctx, path, func() {
		if err := run(); err != nil {
			logger.Error("calculation failed", "path", path, "err", err)
		}
	})
}

func calcFile(path string, fallback modern.Kind) (*modern.InputFile, *models.Report, error) {
	in, err := modern.LoadInput(path, fallback)
	if err != nil {
		return nil, nil, err
	}
	rep, err := modern.Compute(in.Kind, in.Input, calcOptions())
	if err != nil {
		return nil, nil, err
	}
	return in, rep, nil
}

func emitReport(cmd *cobra.Command, path string, in *modern.InputFile, rep *models.Report) error {
	out := cmd.OutOrStdout()
	if calcJSON {
		if err := writeJSON(out, rep); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, ui.FormatReport(rep))
	}
	if calcSave || calcOut != "" {
		dst := calcOut
		if dst == "" {
			dst = modern.ReportPath(path)
		}
		if samePath(dst, path) {
			return fmt.Errorf("save report: %s would overwrite the input", dst)
		}
		if err := modern.SaveReport(dst, in.Kind, in.Input, rep); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
		logger.Info("report saved", "path", dst)
	}
	if calcRecord {
		id, err := storeRecord(cmd.Context(), in, rep)
		if err != nil {
			return err
		}
		logger.Info("record stored", "id", id)
	}
	return nil
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return aa == bb
}

func storeRecord(ctx context.Context, in *modern.InputFile, rep *models.Report) (string, error) {
	store, err := records.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return "", err
	}
	defer store.Close()
	result, err := json.Marshal(rep)
	if err != nil {
		return "", err
	}
	rec := &records.Record{Kind: string(in.Kind), Input: in.Input, Result: result}
	if err := store.Put(ctx, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
