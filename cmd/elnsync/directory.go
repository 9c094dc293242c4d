package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/elnsync/internal/model"
)

var templatesCmd = &cobra.Command{
	Use:     "templates",
	Short:   "List entry templates",
	GroupID: "notebook",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		templates, err := a.notebook.ListTemplates(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(templates)
		}
		w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME")
		for _, t := range templates {
			fmt.Fprintf(w, "%s\t%s\n", t.ID, t.Name)
		}
		return w.Flush()
	},
}

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Short:   "List notebook projects",
	GroupID: "notebook",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		projects, err := a.notebook.ListProjects(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(projects)
		}
		w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tOWNER")
		for _, p := range projects {
			owner := ""
			if p.Owner != nil {
				owner = p.Owner.Handle
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, owner)
		}
		return w.Flush()
	},
}

var userCmd = &cobra.Command{
	Use:     "user",
	Short:   "Look up notebook accounts",
	GroupID: "notebook",
}

var userResolveCmd = &cobra.Command{
	Use:   "resolve <username> <email>",
	Short: "Find the notebook account for an application user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		u, ok, err := a.notebook.Users().Resolve(cmd.Context(), model.User{Username: args[0], Email: args[1]})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no notebook account for %s <%s>", args[0], args[1])
		}
		if jsonOutput {
			return printJSON(u)
		}
		fmt.Fprintf(stdout, "ID:     %s\nName:   %s\nHandle: %s\nEmail:  %s\n", u.ID, u.Name, u.Handle, u.Email)
		return nil
	},
}

func init() {
	userCmd.AddCommand(userResolveCmd)
}
