package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var instancesLimit int

var instancesCmd = &cobra.Command{
	Use:   "instances <type>",
	Short: "List heap addresses of every instance of a type",
	Long: `Instances scans the image and lists the tagged address of every
object whose type name matches the argument, one per line.

Example:
  heaplift instances -i core.12345 Object
  heaplift instances -i core.12345 "(Array)" --limit 20`,
	Args: cobra.ExactArgs(1),
	RunE: runInstances,
}

func init() {
	instancesCmd.Flags().IntVar(&instancesLimit, "limit", 0,
		"print at most this many instances (0 = all)")
	rootCmd.AddCommand(instancesCmd)
}

func runInstances(cmd *cobra.Command, args []string) error {
	typeName := args[0]

	session, _, log, err := openSession()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := session.EnsureScanned(); err != nil {
		return err
	}

	record, ok := session.Types().Lookup(typeName)
	if !ok {
		cmd.Printf("No instances of %s found\n", typeName)
		return nil
	}

	instances := record.Instances()
	shown := len(instances)
	if instancesLimit > 0 && instancesLimit < shown {
		shown = instancesLimit
	}
	for _, addr := range instances[:shown] {
		fmt.Fprintf(cmd.OutOrStdout(), "0x%x\n", addr)
	}
	if shown < len(instances) {
		cmd.Printf("... and %d more\n", len(instances)-shown)
	}
	return nil
}
