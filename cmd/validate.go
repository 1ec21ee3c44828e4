package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sheltermap/campaddr/internal/diag"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check input layers without assigning addresses",
	Long: `Loads and cleans all four input layers, reporting hygiene findings
(duplicate geometries, empty shapes, missing attributes) without running the
addressing pipeline. Integrity errors such as a shelter without a camp id
fail the command.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("validate"); err != nil {
			return err
		}

		manifest, err := resolveManifest(cmd)
		if err != nil {
			return err
		}

		report := diag.NewReport()
		layers, err := loadLayers(manifest, report)
		if err != nil {
			return err
		}

		fmt.Printf("structures: %d\n", len(layers.Structures))
		fmt.Printf("shelters:   %d\n", len(layers.Shelters))
		fmt.Printf("lines:      %d\n", len(layers.Lines))
		fmt.Printf("doors:      %d\n", len(layers.Doors))

		conditions := report.Conditions()
		if len(conditions) == 0 {
			fmt.Println("no hygiene findings")
			return nil
		}

		fmt.Printf("%d hygiene findings:\n", len(conditions))
		for _, c := range conditions {
			fmt.Printf("  [%s] %s\n", c.Severity, c.Message)
		}
		return nil
	},
}

func init() {
	addLayerFlags(validateCmd)
	rootCmd.AddCommand(validateCmd)
}
