package cmd

import (
	"github.com/spf13/cobra"

	"github.com/heaplift/heaplift/internal/histogram"
)

var objectsDetailed bool

var objectsCmd = &cobra.Command{
	Use:   "objects",
	Short: "Print a histogram of heap objects by type",
	Long: `Objects scans the image for managed-heap objects and prints a
histogram of instance counts and total sizes per type name.

With --detailed, objects of the same type are split further by their
property signature, so differently-shaped instances show up as
separate rows.

Example:
  heaplift objects --image core.12345
  heaplift objects -i core.12345 --detailed`,
	RunE: runObjects,
}

func init() {
	objectsCmd.Flags().BoolVarP(&objectsDetailed, "detailed", "d", false,
		"split types by property signature")
	rootCmd.AddCommand(objectsCmd)
}

func runObjects(cmd *cobra.Command, args []string) error {
	session, _, log, err := openSession()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := session.EnsureScanned(); err != nil {
		return err
	}

	if objectsDetailed {
		histogram.RenderDetailed(session.Detailed(), cmd.OutOrStdout())
		return nil
	}
	histogram.RenderSimple(session.Types(), cmd.OutOrStdout())
	return nil
}
