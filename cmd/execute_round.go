package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/mselser95/updown-rounds/internal/app"
	"github.com/mselser95/updown-rounds/internal/prediction"
	"github.com/mselser95/updown-rounds/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var executeRoundCmd = &cobra.Command{
	Use:   "execute-round",
	Short: "Settle the finishing round once against the configured store",
	Long: `Runs a single execute_round operation directly against the store:
the finishing round is closed at the oracle price, the current round is
locked and the next round opens.

Needs a persistent store and ORACLE_MODE=http. A running server settles
rounds itself with KEEPER_ENABLED=true.`,
	RunE: runExecuteRound,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(executeRoundCmd)
}

func runExecuteRound(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer application.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := application.Engine().Execute(ctx, prediction.Env{
		Contract: application.Contract(),
		Sender:   config.Address(cfg.OperatorAddr),
		Time:     uint64(time.Now().Unix()),
	}, prediction.OpExecuteRound{})
	if err != nil {
		return fmt.Errorf("execute round: %w", err)
	}

	return printJSON(resp)
}
