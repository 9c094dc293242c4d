package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/elnsync/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export folder references and schemas as JSONL",
	Long: `Export folder references and assay type schemas as JSONL.

Without flags the export is written to stdout. --output writes it to a
file; --push sends it once to every configured destination (S3, git).`,
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		push, _ := cmd.Flags().GetBool("push")

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if push {
			dests := exportDestinations(cmd.Context())
			if len(dests) == 0 {
				return fmt.Errorf("no export destinations configured (ELNSYNC_EXPORT_S3_BUCKET or ELNSYNC_EXPORT_GIT_REPO)")
			}
			return export.NewScheduler(st, dests, 0, logger).RunOnce(cmd.Context())
		}

		if output == "" || output == "-" {
			return export.ExportJSONL(cmd.Context(), st, stdout)
		}
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		if err := export.ExportJSONL(cmd.Context(), st, f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "write the export to a file")
	exportCmd.Flags().Bool("push", false, "push the export to the configured destinations")
}
