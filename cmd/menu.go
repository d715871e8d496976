/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/schooldesk/console/internal/rbac"
	"github.com/schooldesk/console/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	menuFile   string
	menuAsYAML bool
)

// menuCmd prints the navigation a role would see.
var menuCmd = &cobra.Command{
	Use:   "menu [role]",
	Short: "Print the navigation visible to a role",
	Long: `Prints the navigation tree filtered for a role, e.g.

	console menu accountant
	console menu --file menu.yaml cashier`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := types.ParseRole(args[0])
		if err != nil {
			return err
		}

		nodes := rbac.DefaultMenu()
		if menuFile != "" {
			data, err := os.ReadFile(menuFile)
			if err != nil {
				return err
			}
			if nodes, err = rbac.ParseMenu(data); err != nil {
				return err
			}
		}

		visible := rbac.FilterMenu(nodes, &role)
		if menuAsYAML {
			out, err := yaml.Marshal(visible)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		}
		printMenu(cmd.OutOrStdout(), visible, 0)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(menuCmd)
	menuCmd.Flags().StringVarP(&menuFile, "file", "f", "", "YAML menu to filter instead of the built-in one")
	menuCmd.Flags().BoolVar(&menuAsYAML, "yaml", false, "print the filtered tree as YAML")
}

func printMenu(w io.Writer, nodes []types.MenuNode, depth int) {
	for _, n := range nodes {
		line := strings.Repeat("  ", depth) + n.Label
		if n.Path != "" {
			line += "  " + n.Path
		}
		fmt.Fprintln(w, line)
		if n.Children != nil {
			printMenu(w, n.Children, depth+1)
		}
	}
}
