package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/heaplift/heaplift/internal/refs"
)

var (
	refsName      string
	refsString    string
	refsRecursive bool
	refsNoColor   bool
)

var refsCmd = &cobra.Command{
	Use:   "refs [address]",
	Short: "Find objects referencing a value, property name, or string",
	Long: `Refs searches the scanned heap for referrers. The default form
takes a tagged object address and prints every object holding it in a
property, array element, context slot, or string component.

With --name, the search matches objects owning a property with that
name instead. With --string, it matches references to any string whose
flattened content equals the argument.

The first refs query builds a reverse index over the whole heap, so it
is slow; repeat queries against the same image reuse the index.

Example:
  heaplift refs -i core.12345 0x3f4a8c0d2231
  heaplift refs -i core.12345 0x3f4a8c0d2231 --recursive
  heaplift refs -i core.12345 --name request
  heaplift refs -i core.12345 --string "api.example.com"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRefs,
}

func init() {
	refsCmd.Flags().StringVar(&refsName, "name", "",
		"search by property name instead of value")
	refsCmd.Flags().StringVar(&refsString, "string", "",
		"search by string content instead of value")
	refsCmd.Flags().BoolVarP(&refsRecursive, "recursive", "r", false,
		"follow referrers of referrers")
	refsCmd.Flags().BoolVar(&refsNoColor, "no-color", false,
		"disable colored addresses")
	rootCmd.AddCommand(refsCmd)
}

func runRefs(cmd *cobra.Command, args []string) error {
	if refsName != "" && refsString != "" {
		return fmt.Errorf("--name and --string are mutually exclusive")
	}
	if refsName == "" && refsString == "" && len(args) == 0 {
		return fmt.Errorf("an address argument is required unless --name or --string is given")
	}

	session, _, log, err := openSession()
	if err != nil {
		return err
	}
	defer log.Sync()

	colored := !refsNoColor && color.SupportColor()
	printer := refs.NewPrinter(session, cmd.OutOrStdout(), colored)

	switch {
	case refsName != "":
		return printer.PrintPropertyRefs(refsName)
	case refsString != "":
		return printer.PrintStringRefs(refsString)
	default:
		search, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		return printer.PrintValueRefs(search, refsRecursive)
	}
}

func parseAddress(arg string) (uint64, error) {
	s := strings.TrimPrefix(strings.ToLower(arg), "0x")
	addr, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", arg, err)
	}
	return addr, nil
}
