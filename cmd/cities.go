/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/worldclock/apiserver/config"
	"github.com/worldclock/apiserver/internal/citylookup"
	"github.com/worldclock/apiserver/internal/server"
	"github.com/worldclock/apiserver/internal/tz"
)

// citiesCmd groups commands working on the city dataset.
var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "Inspect and publish the city dataset",
}

var citiesCheckCmd = &cobra.Command{
	Use:   "check <city> [country]",
	Short: "Resolve a city with the configured dataset",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		table, err := server.LoadCities(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		country := ""
		if len(args) == 2 {
			country = args[1]
		}

		out := cmd.OutOrStdout()
		for _, candidate := range table.Lookup(args[0]) {
			fmt.Fprintf(out, "candidate\t%s\t%s\n", candidate.CountryCode, candidate.Timezone)
		}

		resolver := tz.NewResolver(table)
		resolved, err := resolver.Resolve(args[0], country)
		if err != nil {
			return err
		}
		now, err := resolver.CurrentLocalTime(resolved.Timezone)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "resolved\t%s\t%s\t%s\n", resolved.Timezone, resolved.Offset, now)
		return nil
	},
}

var citiesPublishCmd = &cobra.Command{
	Use:   "publish <file>",
	Short: "Validate a dataset file and upload it to the configured object store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		backend := strings.ToLower(strings.TrimSpace(cfg.Cities.Source))
		if backend != citylookup.SourceMinio && backend != citylookup.SourceGCS {
			return fmt.Errorf("CITIES_SOURCE must be %q or %q to publish", citylookup.SourceMinio, citylookup.SourceGCS)
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		table, err := citylookup.Load(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("invalid dataset: %w", err)
		}

		objects, err := server.NewObjectStorage(cmd.Context(), cfg, backend)
		if err != nil {
			return err
		}
		if err := objects.EnsureBucket(cmd.Context()); err != nil {
			return fmt.Errorf("ensure bucket: %w", err)
		}
		if err := objects.Put(cmd.Context(), cfg.Cities.ObjectKey, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
			return fmt.Errorf("upload dataset: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "published %d cities (%d rows) to %s/%s\n",
			table.Cities(), table.Rows(), objects.Bucket(), cfg.Cities.ObjectKey)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(citiesCmd)
	citiesCmd.AddCommand(citiesCheckCmd, citiesPublishCmd)
}
