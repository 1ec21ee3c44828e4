package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sheltermap/campaddr/internal/diag"
	"github.com/sheltermap/campaddr/internal/export"
	"github.com/sheltermap/campaddr/internal/layer"
	"github.com/sheltermap/campaddr/internal/pipeline"
	"github.com/sheltermap/campaddr/internal/store"
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Assign walking-order addresses to all shelters",
	Long: `Runs the full addressing pipeline: joins shelters to structures, door
points to sequence lines, derives per-shelter rank keys, then assigns
structure numbers and shelter letters per sub-block in walking order.

Outputs augmented shelter and structure shapefiles plus a diagnostics
report. The run is recorded in the audit store.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("address"); err != nil {
			return err
		}

		manifest, err := resolveManifest(cmd)
		if err != nil {
			return err
		}

		outDir, _ := cmd.Flags().GetString("out-dir")
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return eris.Wrapf(err, "address: create output dir %s", outDir)
		}

		st, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		manifestJSON, err := json.Marshal(manifest)
		if err != nil {
			return eris.Wrap(err, "address: marshal manifest")
		}
		run, err := st.CreateRun(ctx, string(manifestJSON))
		if err != nil {
			return err
		}
		log := zap.L().With(zap.String("run_id", run.ID))
		log.Info("address: run started")

		result, err := runAddressing(ctx, cmd, manifest)
		if err != nil {
			if failErr := st.FailRun(ctx, run.ID, err); failErr != nil {
				log.Warn("address: failed to record run failure", zap.Error(failErr))
			}
			return err
		}

		if err := writeOutputs(cmd, outDir, result); err != nil {
			if failErr := st.FailRun(ctx, run.ID, err); failErr != nil {
				log.Warn("address: failed to record run failure", zap.Error(failErr))
			}
			return err
		}

		if err := st.CompleteRun(ctx, run.ID, result.Summary); err != nil {
			log.Warn("address: failed to record run summary", zap.Error(err))
		}

		printSummary(run.ID, result)
		return nil
	},
}

func init() {
	addLayerFlags(addressCmd)
	addressCmd.Flags().String("out-dir", "out", "directory for output layers and reports")
	addressCmd.Flags().Bool("geojson", false, "also export addressed shelters as GeoJSON")
	addressCmd.Flags().String("register", "", "also export an XLSX address register to this path")
	addressCmd.Flags().Float64("rank-scale", 0, "line-id multiplier for rank keys (default from config)")
	addressCmd.Flags().Float64("door-tolerance", 0, "max door-to-line distance in dataset units (default from config)")
	addressCmd.Flags().Int("workers", 0, "concurrent sub-block workers (default from config)")
	rootCmd.AddCommand(addressCmd)
}

// runAddressing loads the layers and executes the pipeline with flag or
// config options.
func runAddressing(ctx context.Context, cmd *cobra.Command, manifest *layer.Manifest) (*pipeline.Result, error) {
	report := diag.NewReport()
	layers, err := loadLayers(manifest, report)
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{
		RankScale:     cfg.Rank.Scale,
		DoorTolerance: cfg.Relate.DoorTolerance,
		Workers:       cfg.Addressing.Workers,
	}
	if v, _ := cmd.Flags().GetFloat64("rank-scale"); v > 0 {
		opts.RankScale = v
	}
	if v, _ := cmd.Flags().GetFloat64("door-tolerance"); v > 0 {
		opts.DoorTolerance = v
	}
	if v, _ := cmd.Flags().GetInt("workers"); v > 0 {
		opts.Workers = v
	}

	result, err := pipeline.New(opts).Run(ctx, layers)
	if err != nil {
		return nil, err
	}

	// Hygiene diagnostics from loading join the pipeline's own report.
	result.Report.Merge(report)
	result.Summary.Diagnostics = result.Report.Conditions()
	return result, nil
}

// writeOutputs writes the augmented layers and any requested exports.
func writeOutputs(cmd *cobra.Command, outDir string, result *pipeline.Result) error {
	if err := layer.WriteShelters(filepath.Join(outDir, "shelters_addressed.shp"), result.Shelters); err != nil {
		return err
	}
	if err := layer.WriteStructures(filepath.Join(outDir, "structures_numbered.shp"), result.Structures); err != nil {
		return err
	}

	diagJSON, err := json.MarshalIndent(result.Summary, "", "  ")
	if err != nil {
		return eris.Wrap(err, "address: marshal summary")
	}
	if err := os.WriteFile(filepath.Join(outDir, "run_summary.json"), diagJSON, 0o644); err != nil {
		return eris.Wrap(err, "address: write summary")
	}

	if wantGeoJSON, _ := cmd.Flags().GetBool("geojson"); wantGeoJSON {
		if err := export.WriteSheltersGeoJSON(filepath.Join(outDir, "shelters_addressed.geojson"), result.Shelters); err != nil {
			return err
		}
	}
	if registerPath, _ := cmd.Flags().GetString("register"); registerPath != "" {
		if err := export.WriteRegister(registerPath, result.Shelters); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(runID string, result *pipeline.Result) {
	s := result.Summary
	fmt.Printf("Run %s complete\n", runID)
	fmt.Printf("  shelters:   %d (%d addressed, %d fallback)\n", s.Shelters, s.Addressed, s.Fallback)
	fmt.Printf("  structures: %d across %d sub-blocks\n", s.Structures, s.SubBlocks)

	if counts := result.Report.Counts(); len(counts) > 0 {
		fmt.Println("  diagnostics:")
		for _, kind := range []diag.Kind{
			diag.KindDuplicateGeometry, diag.KindOrphanShelter, diag.KindOrphanDoor,
			diag.KindUnrankedShelter, diag.KindMultiDoor, diag.KindRankTie,
			diag.KindLetterOverflow, diag.KindEmptySubBlock,
		} {
			if n := counts[kind]; n > 0 {
				fmt.Printf("    %-20s %d\n", kind, n)
			}
		}
	}
}
