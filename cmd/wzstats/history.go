package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/wzstats-client/pkg/provider"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	historyPlatform string
	historyUsername string
	historyMin      int
	historyMode     string
)

//nolint:gochecknoglobals // Cobra commands are typically global
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Collect a player's recent match history and print it as JSON",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyPlatform, "platform", "battle", "platform (battle, psn, xbl, acti)")
	historyCmd.Flags().StringVar(&historyUsername, "username", "", "player name, e.g. Player#1234")
	historyCmd.Flags().IntVar(&historyMin, "min", defaultMinQualifying, "minimum number of qualifying matches")
	historyCmd.Flags().StringVar(&historyMode, "mode", defaultMode, "qualifying modes (br, resu, others, all)")
	_ = historyCmd.MarkFlagRequired("username")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	platform, err := provider.ParsePlatform(historyPlatform)
	if err != nil {
		return err
	}
	isQualifying, err := provider.ModePredicate(historyMode)
	if err != nil {
		return err
	}
	if historyMin < 0 {
		return fmt.Errorf("--min must not be negative")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.client.History(ctx, platform, historyUsername, historyMin, isQualifying)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(newHistoryResponse(platform, historyUsername, historyMode, historyMin, res))
}
