// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdiddy/menu-engine/internal/cache"
	"github.com/pdiddy/menu-engine/internal/pipeline"
	"github.com/pdiddy/menu-engine/pkg/types"
)

var menusCmd = &cobra.Command{
	Use:   "menus",
	Short: "Manage stored menus (list, get, delete, purge)",
	Long: `Menus inspects and manages the durable tier. Deleting a menu also
removes it from the fast tier so the next request re-extracts it.`,
}

// --- list subcommand ---

var menusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored menus, newest first",
	RunE:  runMenusList,
}

func runMenusList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	skip, _ := cmd.Flags().GetInt("skip")

	r, closeFn, err := menuResolver(ctxOf(cmd))
	if err != nil {
		return err
	}
	defer closeFn()

	recs, total, err := r.List(ctxOf(cmd), limit, skip)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RESTAURANT\tLOCATION\tITEMS\tSTORED\tEXPIRES")
	for _, rec := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			rec.Request.RestaurantName, rec.Request.Location, rec.ItemsCount,
			rec.InsertedAt.Local().Format(time.DateTime), rec.ExpiresAt.Local().Format(time.DateOnly))
	}
	tw.Flush()
	fmt.Fprintf(os.Stderr, "%d of %d menus\n", len(recs), total)
	return nil
}

// --- get subcommand ---

var menusGetCmd = &cobra.Command{
	Use:   "get <restaurant name>",
	Short: "Print a stored menu without extracting",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMenusGet,
}

func runMenusGet(cmd *cobra.Command, args []string) error {
	req, err := menuRequest(cmd, args)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")

	r, closeFn, err := menuResolver(ctxOf(cmd))
	if err != nil {
		return err
	}
	defer closeFn()

	doc, err := r.Lookup(ctxOf(cmd), req)
	if err != nil {
		return err
	}
	return writeDocument(os.Stdout, doc, format)
}

// --- delete subcommand ---

var menusDeleteCmd = &cobra.Command{
	Use:   "delete <restaurant name>",
	Short: "Evict a stored menu from both cache tiers",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMenusDelete,
}

func runMenusDelete(cmd *cobra.Command, args []string) error {
	req, err := menuRequest(cmd, args)
	if err != nil {
		return err
	}

	r, closeFn, err := menuResolver(ctxOf(cmd))
	if err != nil {
		return err
	}
	defer closeFn()

	existed, err := r.Evict(ctxOf(cmd), req)
	if err != nil {
		return err
	}
	if !existed {
		return fmt.Errorf("%w: no stored menu for %q", types.ErrNotFound, req.Query())
	}
	fmt.Fprintf(os.Stderr, "%s deleted %s\n", color.GreenString("✓"), req.Query())
	return nil
}

// --- purge subcommand ---

var menusPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired menus from the durable tier",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, closeFn, err := menuResolver(ctxOf(cmd))
		if err != nil {
			return err
		}
		defer closeFn()

		n, err := r.Purge(ctxOf(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "purged %d expired menus\n", n)
		return nil
	},
}

func init() {
	menusListCmd.Flags().Int("limit", 20, "maximum menus to list")
	menusListCmd.Flags().Int("skip", 0, "menus to skip")

	for _, c := range []*cobra.Command{menusGetCmd, menusDeleteCmd} {
		c.Flags().String("location", "", "restaurant location used when the menu was extracted")
	}
	menusGetCmd.Flags().String("format", "json", "output format: json or yaml")

	menusCmd.AddCommand(menusListCmd, menusGetCmd, menusDeleteCmd, menusPurgeCmd)
	rootCmd.AddCommand(menusCmd)
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func menuRequest(cmd *cobra.Command, args []string) (types.ExtractionRequest, error) {
	location, _ := cmd.Flags().GetString("location")
	return types.NewExtractionRequest(strings.Join(args, " "), location)
}

// menuResolver opens the tiers for management commands. The durable tier is
// required; the fast tier is best effort.
func menuResolver(ctx context.Context) (*pipeline.Resolver, func(), error) {
	durable, err := openDurable(ctx, appConfig.Cache)
	if err != nil {
		return nil, nil, err
	}
	t := &tiers{durable: durable}
	if appConfig.Cache.RedisURL != "" {
		if fast, err := cache.New(appConfig.Cache); err == nil {
			t.fast = fast
		} else {
			logger.Warn("fast tier unavailable", "error", err)
		}
	}
	return newResolver(nil, t, appConfig.Cache), t.Close, nil
}
