package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Hackbard/piss/config"
	"github.com/Hackbard/piss/internal/domain"
	"github.com/Hackbard/piss/internal/reconcile"
)

func reconcileCMD() *cobra.Command {
	var cfgPath string
	var wikiPath string
	var dipPath string
	var overridesPath string
	var outDir string

	var cmd = &cobra.Command{
		Use:   "reconcile",
		Short: "Link wiki and DIP person records into canonical persons",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			logger := log.New(os.Stderr, "[RECONCILE] ", log.LstdFlags)

			var wikiRecords []domain.WikipediaPersonRecord
			if err := readJSONFile(wikiPath, &wikiRecords); err != nil {
				return err
			}
			var dipRecords []domain.DipPersonRecord
			if err := readJSONFile(dipPath, &dipRecords); err != nil {
				return err
			}

			if overridesPath == "" {
				overridesPath = cfg.Reconcile.OverridesPath
			}
			overrides, err := reconcile.LoadOverrides(overridesPath)
			if err != nil {
				return err
			}

			ruleset := reconcile.Ruleset{
				Floor:      cfg.Reconcile.ScoreFloor,
				Ceiling:    cfg.Reconcile.ScoreCeiling,
				Margin:     cfg.Reconcile.AcceptMargin,
				MaxPending: cfg.Reconcile.MaxPending,
			}
			engine, err := reconcile.NewEngine(ruleset, overrides, logger)
			if err != nil {
				return err
			}

			persons, assertions := engine.Reconcile(wikiRecords, dipRecords)
			logger.Printf("reconciled %d wiki records against %d dip records: %d canonical persons, %d assertions",
				len(wikiRecords), len(dipRecords), len(persons), len(assertions))

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			if err := writeJSONFile(filepath.Join(outDir, "canonical_persons.json"), persons); err != nil {
				return err
			}
			return writeJSONFile(filepath.Join(outDir, "link_assertions.json"), assertions)
		},
	}

	cmd.Flags().StringVar(&wikiPath, "wiki", "", "JSON file with wiki person records")
	cmd.Flags().StringVar(&dipPath, "dip", "", "JSON file with DIP person records")
	cmd.Flags().StringVar(&overridesPath, "overrides", "", "link overrides file (default from config)")
	cmd.Flags().StringVar(&outDir, "out", "data/reconcile", "output directory")
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config)")
	_ = cmd.MarkFlagRequired("wiki")
	_ = cmd.MarkFlagRequired("dip")

	return cmd
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
