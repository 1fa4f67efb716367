package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a secp256k1 key for signing transactions and permits",
	Args:  cobra.NoArgs,
	RunE:  runKeygen,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(keygenCmd)
}

func runKeygen(cmd *cobra.Command, args []string) error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	fmt.Printf("Address:     %s\n", crypto.PubkeyToAddress(key.PublicKey).Hex())
	fmt.Printf("Private key: %s\n", hexutil.Encode(crypto.FromECDSA(key)))
	fmt.Println()
	fmt.Println("Keep the private key secret. Export it as TX_PRIVATE_KEY to use it with the tx command.")

	return nil
}
