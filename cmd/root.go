package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sheltermap/campaddr/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "campaddr",
	Short: "Sequential shelter addressing for refugee and IDP camps",
	Long:  "Derives deterministic walking-order addresses for camp shelters from structure, shelter, sequence-line and door-point layers.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
