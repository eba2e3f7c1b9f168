// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/menu-engine/pkg/types"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr <restaurant name>",
	Short: "Recognize menu text without structuring it",
	Long: `Ocr runs photo search, text recognition, and chunking, then prints the
recognized text. Nothing is cached. Use --format json or yaml to see the
per-photo results and chunk boundaries.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOCR,
}

func init() {
	ocrCmd.Flags().String("location", "", "restaurant location (city or area)")
	ocrCmd.Flags().StringSlice("image", nil, "menu photo URL (repeatable); skips photo search")
	ocrCmd.Flags().String("format", "text", "output format: text, json, or yaml")
	rootCmd.AddCommand(ocrCmd)
}

func runOCR(cmd *cobra.Command, args []string) error {
	location, _ := cmd.Flags().GetString("location")
	images, _ := cmd.Flags().GetStringSlice("image")
	format, _ := cmd.Flags().GetString("format")

	req, err := types.NewExtractionRequest(strings.Join(args, " "), location)
	if err != nil {
		return err
	}
	p, err := buildPipeline(appConfig, images)
	if err != nil {
		return err
	}

	ctx := ctxOf(cmd)
	res, err := p.RecognizeOnly(ctx, req)
	if err != nil {
		return err
	}

	switch format {
	case "text":
		fmt.Fprintln(os.Stdout, res.Text)
	case "json", "yaml":
		if err := writeDocument(os.Stdout, res, format); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q (want text, json, or yaml)", format)
	}
	fmt.Fprintf(os.Stderr, "%d/%d photos recognized, %d characters, %d chunks\n",
		res.Meta.ImagesProcessed-res.Meta.ImagesFailed, res.Meta.ImagesProcessed,
		res.Meta.OCRChars, res.Meta.Chunks)
	return nil
}
