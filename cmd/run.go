package cmd

import (
	"fmt"

	"github.com/mselser95/updown-rounds/internal/app"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the market server",
	Long: `Starts the market host, which will:
1. Open the configured store (memory, leveldb or postgres)
2. Connect the price oracle (feed, http or stream)
3. Serve queries and signed transactions over HTTP
4. Settle rounds on schedule when KEEPER_ENABLED is set

Use --owner to initialize an empty store with the configured market.`,
	RunE: runServer,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("owner", "", "Initialize an empty store with this owner address")
}

func runServer(cmd *cobra.Command, args []string) error {
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

	application, err := app.New(cfg, logger, &app.Options{Owner: owner})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
