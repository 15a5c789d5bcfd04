package main

import (
	"fmt"
	"os"

	"auto_spec_builder/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	exportOwner  int64
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export [specification-id]",
	Short: "Render a stored specification as .docx or .html",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().Int64Var(&exportOwner, "user", 1, "owning user id")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(pipeline.FormatDOCX), "doc or html")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output path (default tz-<id>.<ext>)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	var specID int64
	if _, err := fmt.Sscan(args[0], &specID); err != nil || specID <= 0 {
		return fmt.Errorf("invalid specification id %q", args[0])
	}

	a, err := openApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	art, err := a.pipeline.Export(cmd.Context(), exportOwner, specID, pipeline.Format(exportFormat))
	if err != nil {
		return err
	}
	out := exportOut
	if out == "" {
		out = art.FileName
	}
	if err := os.WriteFile(out, art.Data, 0o644); err != nil {
		return err
	}
	logger.Info("exported", zap.Int64("spec_id", specID), zap.String("path", out))
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
