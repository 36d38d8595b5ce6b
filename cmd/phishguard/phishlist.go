package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/commjoen/phishguard/internal/phishlist"
)

var sourcesFile string

var phishlistCmd = &cobra.Command{
	Use:   "phishlist",
	Short: "Manage the local threat list",
}

var phishlistUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Download the configured feeds into the threat list",
	Long: `update downloads every feed listed in the sources file and adds new URLs
to the database. URLs already present keep their original source. A feed
that cannot be downloaded is skipped.`,
	Args: cobra.NoArgs,
	RunE: runPhishlistUpdate,
}

var phishlistLookupCmd = &cobra.Command{
	Use:   "lookup <url>",
	Short: "Check whether a URL is in the threat list",
	Args:  cobra.ExactArgs(1),
	RunE:  runPhishlistLookup,
}

func init() {
	phishlistUpdateCmd.Flags().StringVar(&sourcesFile, "sources", "sources.yaml", "YAML file listing the feeds to download")
	addDBFlag(phishlistUpdateCmd)
	addDBFlag(phishlistLookupCmd)

	phishlistCmd.AddCommand(phishlistUpdateCmd, phishlistLookupCmd)
}

func openStore(cmd *cobra.Command, logger *log.Logger) (*phishlist.Store, error) {
	cfg, err := loadServiceConfig(cmd)
	if err != nil {
		return nil, err
	}
	return phishlist.Open(cfg.PhishListDB, phishlist.WithLogger(logger))
}

func runPhishlistUpdate(cmd *cobra.Command, _ []string) error {
	sources, err := phishlist.LoadSources(sourcesFile)
	if err != nil {
		return err
	}

	logger := newLogger()
	store, err := openStore(cmd, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	processed, err := store.Update(ctx, sources)
	if err != nil {
		return err
	}
	total, err := store.Count(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Processed %d URLs from %d sources, %d in database\n", processed, len(sources), total)
	return nil
}

func runPhishlistLookup(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd, newLogger())
	if err != nil {
		return err
	}
	defer store.Close()

	m, err := store.Lookup(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(m)
}
