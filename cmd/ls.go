package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/weeksdev/duckfinder/fs"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "Print a directory listing in browser order",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		return printListing(cmd.OutOrStdout(), dir)
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}

func printListing(w io.Writer, dir string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	entries, err := fs.List(fs.Resolve(cwd, dir))
	if err != nil {
		return err
	}
	for _, e := range entries {
		name := e.Name
		if e.IsDir() {
			name += "/"
		}
		if e.Symlink {
			name += "@"
		}
		fmt.Fprintln(w, name)
	}
	return nil
}
