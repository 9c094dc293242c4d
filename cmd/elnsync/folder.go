package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/elnsync/internal/notebook"
	"github.com/alfredjeanlab/elnsync/internal/ui"
)

var folderCmd = &cobra.Command{
	Use:     "folder",
	Short:   "Show, create and repair record folders",
	GroupID: "notebook",
}

var folderShowCmd = &cobra.Command{
	Use:   "show <kind> <id>",
	Short: "Show the folder linked to a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, id, err := parseKindID(args)
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		ref, err := a.notebook.Ref(cmd.Context(), kind, id)
		if err != nil {
			return err
		}
		folder, err := a.notebook.FindFolder(cmd.Context(), ref)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]any{"ref": ref, "folder": folder})
		}
		printFolderRef(ref)
		fmt.Fprintln(stdout)
		printFolder(folder)
		return nil
	},
}

var folderTreeCmd = &cobra.Command{
	Use:   "tree <kind> <id>",
	Short: "Show a record's folder with every subfolder and entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, id, err := parseKindID(args)
		if err != nil {
			return err
		}
		names, _ := cmd.Flags().GetStringArray("name")
		a, err := openApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		ref, err := a.notebook.Ref(cmd.Context(), kind, id)
		if err != nil {
			return err
		}
		if len(names) == 0 && ref.Name != "" {
			names = []string{ref.Name}
		}
		tree, err := a.notebook.FindFullFolder(cmd.Context(), ref, names...)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(tree)
		}
		printTree(tree)
		return nil
	},
}

var folderCreateCmd = &cobra.Command{
	Use:   "create [<kind> <id>]",
	Short: "Create or link the folder for a record",
	Long: `Create or link the folder for a record.

Programs link a pre-existing folder (--folder-id or ELN_PROGRAM_FOLDER_ID).
Studies and assays get a new folder under their parent's folder, so the
parent must already be linked. A record that already has a folder is left
as it is.`,
	Example: `  elnsync folder create program p1 --code PRG-1 --name Kinase --folder-id lib_abc
  elnsync folder create study s1 --name Dose --parent program:p1:Kinase
  elnsync folder create assay a1 --name "Run 1" --assay-type elisa --field count=3 \
    --parent study:s1:Dose --parent program:p1`,
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := readRecord(cmd, args)
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.registry.ValidateRecord(cmd.Context(), rec); err != nil {
			return err
		}
		res, err := a.notebook.CreateFolderForRecord(cmd.Context(), rec)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(res)
		}
		if res.State == notebook.StateFound {
			fmt.Fprintln(stdout, "Folder already linked:")
		} else {
			fmt.Fprintln(stdout, "Folder linked:")
		}
		printFolderRef(res.Ref)
		fmt.Fprintf(stdout, "State:      %s\n", ui.RenderState(string(res.State)))
		return nil
	},
}

var folderRepairCmd = &cobra.Command{
	Use:   "repair <kind> <id> <folder-id>",
	Short: "Point a record at a different notebook folder",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, id, err := parseKindID(args)
		if err != nil {
			return err
		}
		names, _ := cmd.Flags().GetStringArray("name")
		a, err := openApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		ref, err := a.notebook.RepairFolderRef(cmd.Context(), kind, id, args[2], names...)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(ref)
		}
		printFolderRef(ref)
		return nil
	},
}

func init() {
	folderTreeCmd.Flags().StringArray("name", nil, "owner names for the displayed path")
	folderRepairCmd.Flags().StringArray("name", nil, "owner names for the stored path (default: folder name)")
	addRecordFlags(folderCreateCmd)

	folderCmd.AddCommand(folderShowCmd)
	folderCmd.AddCommand(folderTreeCmd)
	folderCmd.AddCommand(folderCreateCmd)
	folderCmd.AddCommand(folderRepairCmd)
}
