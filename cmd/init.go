package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/mselser95/updown-rounds/internal/app"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the market in a persistent store",
	Long: `Writes the market config (operator, treasury, bet asset, fee rate,
intervals) from the environment into the configured store. The market
starts paused; the owner opens it with a start_genesis_round transaction.

Running init against an initialized store leaves it unchanged.`,
	RunE: runInit,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().String("owner", "", "Owner address (required)")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	owner, err := addressFlag(cmd, "owner")
	if err != nil {
		return err
	}
	if owner == nil {
		return errors.New("--owner is required")
	}

	application, err := app.New(cfg, logger, &app.Options{Owner: owner})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer application.Close()

	view, err := application.Engine().QueryConfig(context.Background())
	if err != nil {
		return fmt.Errorf("query config: %w", err)
	}

	return printJSON(view)
}
