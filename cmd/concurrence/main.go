package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/coolbeans/concurrence/pkg/archive"
	"github.com/coolbeans/concurrence/pkg/concurrence"
	"github.com/coolbeans/concurrence/pkg/config"
	"github.com/coolbeans/concurrence/pkg/dataset"
	"github.com/coolbeans/concurrence/pkg/normalize"
	"github.com/coolbeans/concurrence/pkg/report"
	"github.com/coolbeans/concurrence/pkg/server"
	"github.com/coolbeans/concurrence/pkg/watch"
)

var version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "concurrence",
		Short: "Court voting agreement explorer",
		Long: `Concurrence folds roll-call voting records from a high court into one
canonical dataset and measures how often each pair of members votes the
same way.

  - normalize merges source files into a dataset artifact
  - view renders the pairwise agreement matrix for a period window
  - pairs ranks the most and least aligned pairs
  - serve exposes datasets and views over HTTP`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Config file (YAML)")

	cmd.AddCommand(normalizeCmd())
	cmd.AddCommand(viewCmd())
	cmd.AddCommand(pairsCmd())
	cmd.AddCommand(snapshotsCmd())
	cmd.AddCommand(serveCmd())

	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func normalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize <source>...",
		Short: "Merge voting record files into a dataset artifact",
		Long: `Read one or more delimited voting record files, in merge order, and write
the canonical dataset artifact. Later sources override earlier ones when
they record a vote for the same case and member.

Examples:
  concurrence normalize SCDB_Legacy_justiceCentered_Citation.csv SCDB_justiceCentered_Citation.csv
  concurrence normalize --output data/court.json --archive data/archive.sqlite legacy.csv modern.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")
			archivePath, _ := cmd.Flags().GetString("archive")
			if output == "" {
				output = cfg.Output
			}
			if archivePath == "" {
				archivePath = cfg.Archive
			}

			sources := args
			if len(sources) == 0 {
				sources = cfg.Sources
			}
			if len(sources) == 0 {
				return fmt.Errorf("no source files given")
			}

			start := time.Now()
			result, err := normalize.FromFiles(cfg.NormalizeOptions(), sources...)
			if err != nil {
				return fmt.Errorf("failed to normalize: %w", err)
			}

			if err := dataset.WriteFile(output, result.Dataset); err != nil {
				return fmt.Errorf("failed to write dataset: %w", err)
			}

			rep := &report.Normalization{
				Dataset:  result.Dataset,
				Stats:    result.Stats,
				Output:   output,
				Duration: time.Since(start),
			}
			fmt.Print(rep.Render(isatty.IsTerminal(os.Stdout.Fd())))

			if archivePath != "" {
				snapshot, err := saveSnapshot(cmd.Context(), archivePath, result.Dataset)
				if err != nil {
					return err
				}
				fmt.Printf("Archived snapshot %s to %s\n", snapshot.ID, archivePath)
			}
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output dataset file (default from config, data/concurrence.json)")
	cmd.Flags().String("archive", "", "SQLite archive to record a snapshot in")

	return cmd
}

func saveSnapshot(ctx context.Context, path string, ds *dataset.Dataset) (archive.Snapshot, error) {
	store, err := archive.Open(path)
	if err != nil {
		return archive.Snapshot{}, fmt.Errorf("failed to open archive: %w", err)
	}
	defer store.Close()

	snapshot, err := store.Save(contextOrBackground(ctx), ds)
	if err != nil {
		return archive.Snapshot{}, fmt.Errorf("failed to archive dataset: %w", err)
	}
	return snapshot, nil
}

func viewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Render the pairwise agreement matrix",
		Long: `Compute agreement between every pair of members over a period window.

Examples:
  concurrence view --from 1953 --to 1968
  concurrence view --members HLBlack,WODouglas,FFrankfurter --format csv
  concurrence view --archive data/archive.sqlite --min-sample 20 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			showProfiles, _ := cmd.Flags().GetBool("profiles")

			ds, err := loadDataset(cmd, cfg)
			if err != nil {
				return err
			}
			filter, err := filterFromFlags(cmd, cfg, ds)
			if err != nil {
				return err
			}

			view := concurrence.ComputeView(ds, filter)

			switch strings.ToLower(format) {
			case "json":
				data, err := view.ToJSON()
				if err != nil {
					return fmt.Errorf("failed to encode view: %w", err)
				}
				fmt.Println(string(data))
			case "csv":
				fmt.Print(view.ToCSV())
			case "ascii", "table", "":
				fmt.Printf("Periods %d-%d | %d cases | members %s\n\n",
					filter.PeriodStart, filter.PeriodEnd, view.CaseCount, filter.Members)
				fmt.Print(view.ToASCII())
				if showProfiles && !view.Empty() {
					fmt.Println()
					fmt.Print(view.ProfilesTable())
				}
			default:
				return fmt.Errorf("unknown format %q (use ascii, csv, or json)", format)
			}
			return nil
		},
	}

	addDatasetFlags(cmd)
	addFilterFlags(cmd)
	cmd.Flags().StringP("format", "f", "ascii", "Output format (ascii, csv, json)")
	cmd.Flags().Bool("profiles", false, "Show per-member participation after the matrix")

	return cmd
}

func pairsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pairs",
		Short: "Rank member pairs by agreement",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			blocThreshold, _ := cmd.Flags().GetFloat64("bloc-threshold")
			reverse, _ := cmd.Flags().GetBool("reverse")

			ds, err := loadDataset(cmd, cfg)
			if err != nil {
				return err
			}
			filter, err := filterFromFlags(cmd, cfg, ds)
			if err != nil {
				return err
			}

			view := concurrence.ComputeView(ds, filter)
			pairs := view.Pairs(filter.MinSample)
			if reverse {
				for i, j := 0, len(pairs)-1; i < j; i, j = i+1, j-1 {
					pairs[i], pairs[j] = pairs[j], pairs[i]
				}
			}
			if limit > 0 && len(pairs) > limit {
				pairs = pairs[:limit]
			}
			fmt.Print(concurrence.FormatPairs(pairs))

			if blocThreshold > 0 {
				blocs := view.Blocs(blocThreshold, filter.MinSample)
				fmt.Printf("\nBlocs at %.0f%% agreement: %d\n", blocThreshold*100, len(blocs))
				for i, bloc := range blocs {
					names := make([]string, len(bloc.Members))
					for k, id := range bloc.Members {
						names[k] = ds.MemberName(id)
					}
					fmt.Printf("  %d. (%d) %s\n", i+1, bloc.Size, strings.Join(names, ", "))
				}
			}
			return nil
		},
	}

	addDatasetFlags(cmd)
	addFilterFlags(cmd)
	cmd.Flags().IntP("limit", "n", 20, "Maximum pairs to show (0 for all)")
	cmd.Flags().Bool("reverse", false, "Show the least aligned pairs first")
	cmd.Flags().Float64("bloc-threshold", 0, "Also group members linked at this agreement rate (0 to 1)")

	return cmd
}

func snapshotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List archived dataset snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			archivePath, _ := cmd.Flags().GetString("archive")
			if archivePath == "" {
				archivePath = cfg.Archive
			}
			if archivePath == "" {
				return fmt.Errorf("no archive configured (use --archive)")
			}

			store, err := archive.Open(archivePath)
			if err != nil {
				return fmt.Errorf("failed to open archive: %w", err)
			}
			defer store.Close()

			snapshots, err := store.List(contextOrBackground(cmd.Context()))
			if err != nil {
				return fmt.Errorf("failed to list snapshots: %w", err)
			}
			if len(snapshots) == 0 {
				fmt.Println("No snapshots archived.")
				return nil
			}

			fmt.Printf("%-36s %-20s %-20s %-11s %7s %7s\n", "ID", "CREATED", "SOURCE", "PERIODS", "CASES", "MEMBERS")
			fmt.Println(strings.Repeat("-", 106))
			for _, s := range snapshots {
				fmt.Printf("%-36s %-20s %-20s %4d-%-6d %7d %7d\n",
					s.ID,
					s.CreatedAt.Format("2006-01-02 15:04:05"),
					truncateString(s.Source, 20),
					s.MinPeriod, s.MaxPeriod,
					s.CaseCount, s.MemberCount,
				)
			}
			fmt.Printf("\n%d snapshot(s)\n", len(snapshots))
			return nil
		},
	}

	cmd.Flags().String("archive", "", "SQLite archive path (default from config)")

	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve datasets and agreement views over HTTP",
		Long: `Start the HTTP server. With --sources the dataset is built from the source
files at startup and POST /api/reload rebuilds it; otherwise the dataset
artifact is served as-is.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			addr, _ := cmd.Flags().GetString("addr")
			sources, _ := cmd.Flags().GetStringSlice("sources")
			watchSources, _ := cmd.Flags().GetBool("watch")
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if len(sources) == 0 {
				sources = cfg.Sources
			}

			var loader server.Loader
			var ds *dataset.Dataset
			if len(sources) > 0 {
				opts := cfg.NormalizeOptions()
				loader = func() (*dataset.Dataset, error) {
					result, err := normalize.FromFiles(opts, sources...)
					if err != nil {
						return nil, err
					}
					return result.Dataset, nil
				}
				if ds, err = loader(); err != nil {
					return fmt.Errorf("failed to build dataset: %w", err)
				}
			} else if ds, err = loadDataset(cmd, cfg); err != nil {
				return err
			}

			holder := server.NewHolder(ds, loader)
			if watchSources {
				if loader == nil {
					return fmt.Errorf("--watch requires --sources")
				}
				watcher, err := watch.NewSources(sources, 0, func(path string) {
					reloaded, err := holder.Reload()
					if err != nil {
						log.Printf("Reload after change to %s failed: %v", path, err)
						return
					}
					log.Printf("Reloaded after change to %s: %d cases, %d members",
						path, reloaded.Meta.CaseCount, reloaded.Meta.MemberCount)
				})
				if err != nil {
					return fmt.Errorf("failed to watch sources: %w", err)
				}
				if err := watcher.Start(contextOrBackground(cmd.Context())); err != nil {
					return fmt.Errorf("failed to watch sources: %w", err)
				}
				defer watcher.Close()
			}

			srv := server.New(holder, cfg)
			r := srv.SetupRouter()

			log.Printf("Serving %d cases, %d members on %s", ds.Meta.CaseCount, ds.Meta.MemberCount, addr)
			return r.Run(addr)
		},
	}

	addDatasetFlags(cmd)
	cmd.Flags().String("addr", "", "Listen address (default from config, :8080)")
	cmd.Flags().StringSlice("sources", nil, "Source files to build from and reload")
	cmd.Flags().Bool("watch", false, "Rebuild the dataset when a source file changes")

	return cmd
}

// loadDataset reads the dataset named by --dataset, or the newest (or
// --snapshot) entry of --archive when one is given.
func loadDataset(cmd *cobra.Command, cfg *config.Config) (*dataset.Dataset, error) {
	datasetPath, _ := cmd.Flags().GetString("dataset")
	archivePath, _ := cmd.Flags().GetString("archive")
	snapshotID, _ := cmd.Flags().GetString("snapshot")

	if archivePath != "" {
		store, err := archive.Open(archivePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		defer store.Close()

		ctx := contextOrBackground(cmd.Context())
		var ds *dataset.Dataset
		if snapshotID != "" {
			ds, _, err = store.Load(ctx, snapshotID)
		} else {
			ds, _, err = store.Latest(ctx)
		}
		if errors.Is(err, archive.ErrSnapshotNotFound) {
			return nil, fmt.Errorf("no matching snapshot in %s", archivePath)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
		return ds, nil
	}

	if datasetPath == "" {
		datasetPath = cfg.Output
	}
	ds, err := dataset.ReadFile(datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset (run 'concurrence normalize' first): %w", err)
	}
	return ds, nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
