package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List configured resources",
	Long: `List every resource anvil would serve, with its admin slug,
model name and form fields. Required fields are marked with *.

Examples:
  anvil resources
  anvil resources --config /etc/anvil/anvil.yaml`,
	RunE: runResources,
}

func init() {
	rootCmd.AddCommand(resourcesCmd)
}

func runResources(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	_, reg, err := loadProject(io.Discard)
	if err != nil {
		return err
	}

	if reg.Len() == 0 {
		fmt.Fprintln(out, "No resources found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tMODEL\tID\tFIELDS")
	fmt.Fprintln(w, "----\t-----\t--\t------")

	for _, res := range reg.List() {
		var fields []string
		for _, f := range res.Fields() {
			name := f.Name
			if attrs, ok := f.Field.Attributes(); ok && attrs.Required {
				name += "*"
			}
			fields = append(fields, name)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", res.Slug(), res.Model(), res.IDKind(), strings.Join(fields, ", "))
	}

	return w.Flush()
}
