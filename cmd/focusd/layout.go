package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"focusd/internal/event"
)

func newLayoutCmd() *cobra.Command {
	var kinds bool

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the 64-byte event record layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := printLayout(cmd.OutOrStdout()); err != nil {
				return err
			}
			if kinds {
				fmt.Fprintln(cmd.OutOrStdout())
				return printKinds(cmd.OutOrStdout())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&kinds, "kinds", false, "also list event kind codes")
	return cmd
}

func printLayout(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OFFSET\tSIZE\tFIELD")
	total := 0
	for _, f := range event.Layout() {
		fmt.Fprintf(tw, "%d\t%d\t%s\n", f.Offset, f.Size, f.Name)
		total += f.Size
	}
	fmt.Fprintf(tw, "\t%d\ttotal (little-endian)\n", total)
	return tw.Flush()
}

func printKinds(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tKIND")
	for k := event.Unknown; k == event.Unknown || k.Known(); k++ {
		fmt.Fprintf(tw, "%d\t%s\n", uint32(k), k)
	}
	return tw.Flush()
}
