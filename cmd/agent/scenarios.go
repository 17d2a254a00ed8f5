package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/qaforge/checkout-agent/internal/scenarios"
)

// newScenariosCommand lists the scenarios in an Excel workbook, as a quick
// sanity check before pointing a test run at it.
func newScenariosCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios <file.xlsx>",
		Short: "List the test scenarios in an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}

			scs, err := scenarios.ReadFile(args[0])
			if err != nil {
				return err
			}

			bold := color.New(color.Bold, color.FgGreen)
			dim := color.New(color.Faint)
			for _, sc := range scs {
				bold.Printf("%s", sc.TestID)
				if sc.Description != "" {
					fmt.Printf("  %s", sc.Description)
				}
				fmt.Println()
				if sc.Country != "" {
					dim.Printf("  country=%s trial=%s\n", sc.Country, sc.TrialStatus)
				}
				for i, step := range sc.Steps {
					fmt.Printf("  %d. %s", i+1, step.Action)
					if step.Param != "" {
						dim.Printf(" (%s)", step.Param)
					}
					fmt.Println()
				}
			}
			fmt.Printf("%d scenario(s)\n", len(scs))
			return nil
		},
	}
}
