package cmd

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// addressFlag returns the parsed address flag, or nil when it is unset.
func addressFlag(cmd *cobra.Command, name string) (*common.Address, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return nil, nil
	}
	if !common.IsHexAddress(raw) {
		return nil, fmt.Errorf("--%s must be a hex address, got %q", name, raw)
	}
	addr := common.HexToAddress(raw)
	return &addr, nil
}

//nolint:gochecknoglobals // shared by the API client commands
var apiHTTPClient = &http.Client{Timeout: 15 * time.Second}

// callAPI performs a request against the market API and prints the JSON
// response. Non-2xx answers are returned as errors.
func callAPI(req *http.Request) error {
	resp, err := apiHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if len(body) == 0 {
		fmt.Println(resp.Status)
		return nil
	}

	var pretty any
	err = json.Unmarshal(body, &pretty)
	if err != nil {
		fmt.Println(string(body))
		return nil
	}
	return printJSON(pretty)
}

func apiURL(cmd *cobra.Command, path string) string {
	base, _ := cmd.Flags().GetString("api")
	return strings.TrimRight(base, "/") + path
}
