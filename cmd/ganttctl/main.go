package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "ganttctl",
		Short:         "ganttctl - inspect and edit construction schedules",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.bind(rootCmd)

	rootCmd.AddCommand(listCmd(opts))
	rootCmd.AddCommand(addCmd(opts))
	rootCmd.AddCommand(updateCmd(opts))
	rootCmd.AddCommand(toggleCmd(opts))
	rootCmd.AddCommand(rmCmd(opts))
	rootCmd.AddCommand(timelineCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
