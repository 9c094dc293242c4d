package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/elnsync/internal/config"
	"github.com/alfredjeanlab/elnsync/internal/model"
	"github.com/alfredjeanlab/elnsync/internal/ui"
)

var schemaCmd = &cobra.Command{
	Use:     "schema",
	Short:   "Manage assay type schemas",
	GroupID: "schemas",
}

var schemaDefineCmd = &cobra.Command{
	Use:   "define <catalog-file>",
	Short: "Define every schema in a TOML or YAML catalog",
	Long: `Define every schema in a TOML or YAML catalog file.

Schemas are stored together: if any is invalid, none are. A schema with the
same name as a stored one replaces it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := config.LoadCatalog(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		saved, err := a.registry.DefineAll(cmd.Context(), cat.Schemas)
		var ve *model.ValidationError
		if errors.As(err, &ve) && !jsonOutput {
			printFieldErrors(ve)
		}
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(saved)
		}
		for _, s := range saved {
			fmt.Fprintf(stdout, "defined %s (%d fields)\n", s.Name, len(s.Fields))
		}
		return nil
	},
}

var schemaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List assay type schemas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		schemas, err := a.registry.List(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(schemas)
		}
		printSchemaList(schemas)
		return nil
	},
}

var schemaShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show an assay type schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.registry.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(s)
		}
		printSchema(s)
		return nil
	},
}

var schemaDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete an assay type schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.registry.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "deleted %s\n", args[0])
		return nil
	},
}

var schemaValidateCmd = &cobra.Command{
	Use:   "validate <name>",
	Short: "Check custom field values against a schema",
	Example: `  elnsync schema validate elisa --field count=3 --field plate="P-7"
  elnsync schema validate elisa --file assay.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		var (
			label  string
			fields model.FieldMap
		)
		if path, _ := cmd.Flags().GetString("file"); path != "" {
			rec, err := readRecordFile(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			label, fields = rec.Name, rec.Fields
		} else {
			pairs, _ := cmd.Flags().GetStringArray("field")
			fm, err := parseFields(pairs)
			if err != nil {
				return err
			}
			fields = fm
		}

		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		err = a.registry.Validate(cmd.Context(), label, name, fields)
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			if jsonOutput {
				_ = printJSON(map[string]any{"valid": false, "fields": ve.Errors})
			} else {
				printFieldErrors(ve)
			}
			return fmt.Errorf("%d field(s) failed validation", len(ve.Errors))
		}
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]any{"valid": true})
		}
		fmt.Fprintln(stdout, ui.RenderSuccess("valid"))
		return nil
	},
}

func init() {
	schemaValidateCmd.Flags().StringP("file", "f", "", "read an assay record as JSON (- for stdin)")
	schemaValidateCmd.Flags().StringArray("field", nil, "field as key=value")

	schemaCmd.AddCommand(schemaDefineCmd)
	schemaCmd.AddCommand(schemaListCmd)
	schemaCmd.AddCommand(schemaShowCmd)
	schemaCmd.AddCommand(schemaDeleteCmd)
	schemaCmd.AddCommand(schemaValidateCmd)
}
