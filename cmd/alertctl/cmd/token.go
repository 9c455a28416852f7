package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridwatch/alertflow/internal/api"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

// tokenCmd mints an API bearer token
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API bearer token",
	Long: `Mint a bearer token for the AlertFlow HTTP API.

The signing secret is read from the ALERTFLOW_API_SECRET environment
variable and must match the one the server runs with. The token is
printed to stdout.

Example:
  export ALERTFLOW_API_SECRET=...
  curl -H "Authorization: Bearer $(alertctl token)" localhost:8080/api/v1/stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := os.Getenv("ALERTFLOW_API_SECRET")
		if secret == "" {
			return fmt.Errorf("ALERTFLOW_API_SECRET environment variable is required")
		}

		token, err := mintToken([]byte(secret), tokenSubject, tokenTTL)
		if err != nil {
			return fmt.Errorf("mint token: %w", err)
		}
		fmt.Println(token)
		return nil
	},
}

// mintToken creates a signed bearer token for the API.
func mintToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	return api.NewJWTService(secret, ttl).GenerateToken(subject)
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "alertctl", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")

	rootCmd.AddCommand(tokenCmd)
}
