package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	json "github.com/goccy/go-json"
	"github.com/mselser95/updown-rounds/internal/permit"
	"github.com/mselser95/updown-rounds/pkg/httpserver"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var txCmd = &cobra.Command{
	Use:   "tx <message-json>",
	Short: "Sign and submit a market transaction",
	Long: `Signs a transaction with a secp256k1 key and posts it to a running
server. The message is one operation keyed by its name.

Example usage:
  tx '{"start_genesis_round":{}}'
  tx '{"bet":{"position":"up"}}' --funds 1000000uscrt
  tx '{"claim":{"epoch":12}}'
  tx '{"create_viewing_key":{"entropy":"dice"}}'

The key is read from --key or TX_PRIVATE_KEY.`,
	Args: cobra.ExactArgs(1),
	RunE: runTx,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(txCmd)
	txCmd.Flags().String("api", "http://localhost:8080", "Market API base URL")
	txCmd.Flags().String("key", "", "Hex private key (defaults to TX_PRIVATE_KEY)")
	txCmd.Flags().StringSlice("funds", nil, "Attached native funds, e.g. 1000uscrt")
}

func runTx(cmd *cobra.Command, args []string) error {
	keyHex, _ := cmd.Flags().GetString("key")
	if keyHex == "" {
		keyHex = os.Getenv("TX_PRIVATE_KEY")
	}
	if keyHex == "" {
		return errors.New("no signing key: pass --key or set TX_PRIVATE_KEY")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(keyHex), "0x"))
	if err != nil {
		return fmt.Errorf("invalid private key: %w", err)
	}

	var msg httpserver.TxMsg
	err = json.Unmarshal([]byte(args[0]), &msg)
	if err != nil {
		return fmt.Errorf("parse message: %w", err)
	}
	_, err = msg.Operation()
	if err != nil {
		return err
	}

	rawFunds, _ := cmd.Flags().GetStringSlice("funds")
	funds, err := parseFunds(rawFunds)
	if err != nil {
		return err
	}

	body, err := json.Marshal(httpserver.TxRequest{
		Envelope: httpserver.Envelope{
			Sender:    crypto.PubkeyToAddress(key.PublicKey),
			Timestamp: time.Now().Unix(),
		},
		Funds: funds,
		Msg:   msg,
	})
	if err != nil {
		return fmt.Errorf("encode tx: %w", err)
	}

	sig, err := permit.SignMessage(body, key)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, apiURL(cmd, "/api/v1/tx"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(httpserver.SignatureHeader, sig)

	return callAPI(req)
}

// parseFunds splits "<amount><denom>" coins.
func parseFunds(raw []string) ([]httpserver.FundsJSON, error) {
	funds := make([]httpserver.FundsJSON, 0, len(raw))
	for _, coin := range raw {
		i := 0
		for i < len(coin) && coin[i] >= '0' && coin[i] <= '9' {
			i++
		}
		if i == 0 || i == len(coin) {
			return nil, fmt.Errorf("invalid funds %q, want <amount><denom>", coin)
		}
		funds = append(funds, httpserver.FundsJSON{Amount: coin[:i], Denom: coin[i:]})
	}
	return funds, nil
}
