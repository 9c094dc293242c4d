package main

import (
	"github.com/spf13/cobra"
)

var entryCmd = &cobra.Command{
	Use:     "entry",
	Short:   "Create notebook entries",
	GroupID: "notebook",
}

var entryCreateCmd = &cobra.Command{
	Use:   "create [<kind> <id>]",
	Short: "Create an entry in a record's folder",
	Long: `Create an entry in a record's folder.

The record's owner and members become the entry's authors when they can be
matched to notebook accounts by username and email. Assay fields are
checked against the assay type schema and sent as custom fields.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := readRecord(cmd, args)
		if err != nil {
			return err
		}
		template, _ := cmd.Flags().GetString("template")
		a, err := openApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.registry.ValidateRecord(cmd.Context(), rec); err != nil {
			return err
		}
		entry, err := a.notebook.CreateEntryForRecord(cmd.Context(), rec, template)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(entry)
		}
		printEntry(entry)
		return nil
	},
}

func init() {
	addRecordFlags(entryCreateCmd)
	entryCreateCmd.Flags().String("template", "", "entry template id")
	entryCmd.AddCommand(entryCreateCmd)
}
