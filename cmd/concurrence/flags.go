package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coolbeans/concurrence/pkg/concurrence"
	"github.com/coolbeans/concurrence/pkg/config"
	"github.com/coolbeans/concurrence/pkg/dataset"
)

func addDatasetFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("dataset", "d", "", "Dataset artifact (default from config, data/concurrence.json)")
	cmd.Flags().String("archive", "", "Read from a SQLite archive instead of the artifact")
	cmd.Flags().String("snapshot", "", "Archive snapshot id (default newest)")
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().Int("from", 0, "First period to include (default dataset minimum)")
	cmd.Flags().Int("to", 0, "Last period to include (default dataset maximum)")
	cmd.Flags().StringP("members", "m", "all", "Comma-separated member ids, or all")
	cmd.Flags().Int("min-sample", concurrence.DefaultMinSample, "Shared cases a pair needs to count toward the scale")
}

// filterFromFlags builds a filter from the filter flags. Unset period flags
// fall back to the dataset bounds and an unset min sample to the config.
func filterFromFlags(cmd *cobra.Command, cfg *config.Config, ds *dataset.Dataset) (concurrence.Filter, error) {
	filter := concurrence.DefaultFilter(ds)
	filter.MinSample = cfg.DefaultMinSample

	flags := cmd.Flags()
	if flags.Changed("from") {
		filter.PeriodStart, _ = flags.GetInt("from")
	}
	if flags.Changed("to") {
		filter.PeriodEnd, _ = flags.GetInt("to")
	}
	if flags.Changed("min-sample") {
		filter.MinSample, _ = flags.GetInt("min-sample")
	}
	members, _ := flags.GetString("members")
	filter.Members = concurrence.ParseMemberSubset(members)

	if err := filter.Validate(); err != nil {
		return filter, fmt.Errorf("invalid filter: %w", err)
	}
	return filter, nil
}
