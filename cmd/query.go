package cmd

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query a running market server",
	Long: `Reads market data from a running server's HTTP API.

Example usage:
  query config
  query state
  query round 12
  query round current
  query bet 12 --user 0x... --key api_key_...
  query price`,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.PersistentFlags().String("api", "http://localhost:8080", "Market API base URL")

	queryCmd.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Show the market config",
		Args:  cobra.NoArgs,
		RunE:  queryPath("/api/v1/config"),
	})
	queryCmd.AddCommand(&cobra.Command{
		Use:   "state",
		Short: "Show the current epoch, paused flag and accumulated fee",
		Args:  cobra.NoArgs,
		RunE:  queryPath("/api/v1/state"),
	})
	queryCmd.AddCommand(&cobra.Command{
		Use:   "price",
		Short: "Show the oracle's latest price for the bet asset",
		Args:  cobra.NoArgs,
		RunE:  queryPath("/api/v1/price"),
	})
	queryCmd.AddCommand(&cobra.Command{
		Use:   "round <epoch|current>",
		Short: "Show a round and its phase",
		Args:  cobra.ExactArgs(1),
		RunE:  runQueryRound,
	})

	betCmd := &cobra.Command{
		Use:   "bet <epoch>",
		Short: "Show a bet, authenticated with a viewing key",
		Args:  cobra.ExactArgs(1),
		RunE:  runQueryBet,
	}
	betCmd.Flags().String("user", "", "Bettor address")
	betCmd.Flags().String("key", "", "Bettor viewing key")
	queryCmd.AddCommand(betCmd)
}

func queryPath(path string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return getAPI(cmd, path)
	}
}

func runQueryRound(cmd *cobra.Command, args []string) error {
	if args[0] == "current" {
		return getAPI(cmd, "/api/v1/rounds/current")
	}
	_, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return errors.New("epoch must be a number or \"current\"")
	}
	return getAPI(cmd, "/api/v1/rounds/"+args[0])
}

func runQueryBet(cmd *cobra.Command, args []string) error {
	_, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return errors.New("epoch must be a number")
	}

	user, _ := cmd.Flags().GetString("user")
	key, _ := cmd.Flags().GetString("key")

	params := url.Values{}
	params.Set("user", user)
	params.Set("key", key)
	return getAPI(cmd, "/api/v1/bets/"+args[0]+"?"+params.Encode())
}

func getAPI(cmd *cobra.Command, path string) error {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, apiURL(cmd, path), nil)
	if err != nil {
		return err
	}
	return callAPI(req)
}
