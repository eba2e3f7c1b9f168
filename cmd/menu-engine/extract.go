// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/menu-engine/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract <restaurant name>",
	Short: "Extract a structured menu for a restaurant",
	Long: `Extract resolves the menu for a restaurant through the cache tiers,
running the full pipeline (photo search, text recognition, structuring,
merge) on a miss. The document is written to stdout and a summary to stderr.

Use --image to supply photo URLs directly instead of searching.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("location", "", "restaurant location (city or area)")
	extractCmd.Flags().StringSlice("image", nil, "menu photo URL (repeatable); skips photo search")
	extractCmd.Flags().String("format", "json", "output format: json or yaml")
	extractCmd.Flags().Bool("no-cache", false, "bypass both cache tiers")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	location, _ := cmd.Flags().GetString("location")
	images, _ := cmd.Flags().GetStringSlice("image")
	format, _ := cmd.Flags().GetString("format")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	if format != "json" && format != "yaml" {
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
	req, err := types.NewExtractionRequest(strings.Join(args, " "), location)
	if err != nil {
		return err
	}

	p, err := buildPipeline(appConfig, images)
	if err != nil {
		return err
	}

	ctx := ctxOf(cmd)

	var doc *types.MenuDocument
	if noCache || len(images) > 0 {
		doc, err = p.Run(ctx, req)
	} else {
		t := openTiers(ctx, appConfig.Cache)
		defer t.Close()
		resolver := newResolver(p, t, appConfig.Cache)
		defer resolver.Wait()
		doc, err = resolver.Resolve(ctx, req)
	}
	if err != nil {
		return err
	}

	if err := writeDocument(os.Stdout, doc, format); err != nil {
		return err
	}
	printSummary(os.Stderr, doc)
	return nil
}

func writeDocument(w io.Writer, v any, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// printSummary writes a short colored report of a run.
func printSummary(w io.Writer, doc *types.MenuDocument) {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	m := doc.Meta
	fmt.Fprintf(w, "%s %s: %s items", green("✓"), bold(doc.Restaurant.Name), bold(m.ItemsCount))
	if m.Source != "" {
		fmt.Fprintf(w, " (%s)", m.Source)
	}
	fmt.Fprintln(w)
	if m.Source == types.SourceFresh || m.Source == "" {
		fmt.Fprintf(w, "  photos %d/%d, chunks %d/%d, duplicates dropped %d, %dms\n",
			m.ImagesProcessed-m.ImagesFailed, m.ImagesProcessed,
			m.Chunks-m.ChunksFailed, m.Chunks,
			m.DuplicatesDropped, m.Timings[types.StageTotal])
	}
	for _, warning := range doc.Warnings {
		fmt.Fprintf(w, "  %s %s\n", yellow("!"), warning)
	}
}
