package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Hackbard/piss/config"
	"github.com/Hackbard/piss/internal/cache"
	"github.com/Hackbard/piss/internal/domain"
	"github.com/Hackbard/piss/internal/evidence"
)

func evidenceCMD() *cobra.Command {
	var cfgPath string
	var idsFlag string
	var refsPath string
	var withSnippets bool
	var maxLen int
	var format string
	var prefer string

	var cmd = &cobra.Command{
		Use:   "evidence",
		Short: "Resolve evidence ids or refs into citations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if idsFlag == "" && refsPath == "" {
				return fmt.Errorf("one of --ids or --refs is required")
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			logger := log.New(os.Stderr, "[EVIDENCE] ", log.LstdFlags)
			index := cache.NewIndex(cfg.Cache.Dir, logger)
			backend := evidence.NewFileCache(index, cfg.MediaWiki.BaseURL, cfg.DIP.BaseURL, logger)
			resolver := evidence.NewResolver(backend, logger)
			opts := evidence.Options{WithSnippets: withSnippets, MaxLen: maxLen}

			var resolved []evidence.ResolvedEvidence
			requested := 0
			if refsPath != "" {
				refs, err := loadEvidenceRefs(refsPath)
				if err != nil {
					return err
				}
				requested = len(refs)
				resolved = resolver.ResolveRefs(refs, opts)
			} else {
				ids := splitIDs(idsFlag)
				requested = len(ids)
				resolved = resolver.Resolve(ids, opts)
			}
			if len(resolved) < requested {
				fmt.Fprintf(os.Stderr, "resolved %d of %d references\n", len(resolved), requested)
			}

			out, err := formatResolved(resolved, format)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&idsFlag, "ids", "", "comma-separated evidence ids (legacy path)")
	cmd.Flags().StringVar(&refsPath, "refs", "", "JSON file with evidence refs (preferred path)")
	cmd.Flags().BoolVar(&withSnippets, "with-snippets", false, "extract snippets from the cached documents")
	cmd.Flags().IntVar(&maxLen, "max-len", 500, "maximum snippet length in characters")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json, yaml, md, table")
	cmd.Flags().StringVar(&prefer, "prefer", "table_row", "kept for compatibility; snippet choice follows each reference")
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config)")

	return cmd
}

func splitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}

func loadEvidenceRefs(path string) ([]domain.EvidenceRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read refs file: %w", err)
	}
	var refs []domain.EvidenceRef
	if err := json.Unmarshal(data, &refs); err != nil {
		return nil, fmt.Errorf("decode refs file %s: %w", path, err)
	}
	return refs, nil
}

func formatResolved(resolved []evidence.ResolvedEvidence, format string) (string, error) {
	switch format {
	case "json":
		return evidence.FormatJSON(resolved)
	case "yaml":
		return evidence.FormatYAML(resolved)
	case "md", "markdown":
		return evidence.FormatMarkdown(resolved), nil
	case "table":
		return evidence.FormatTable(resolved), nil
	default:
		return "", fmt.Errorf("unknown format %q (want json, yaml, md or table)", format)
	}
}
