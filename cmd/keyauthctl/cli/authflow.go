package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/makkenzo/keyauth-service/internal/authclient"
	"github.com/makkenzo/keyauth-service/internal/handler/dto"
	"github.com/makkenzo/keyauth-service/internal/util"
	"github.com/spf13/cobra"
)

func newAuthFlowCmd() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "authflow <apiKey> <secret>",
		Short: "Run the challenge/response exchange and print a token",
		Example: `  keyauthctl authflow 3f2a... 9c1d...
  keyauthctl authflow 3f2a... 9c1d... --url https://auth.example.com`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthFlow(cmd.Context(), cmd.OutOrStdout(), authclient.New(baseURL, nil), args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "base URL of the service")

	return cmd
}

func runAuthFlow(ctx context.Context, out io.Writer, client *authclient.Client, apiKey, secret string) error {
	fmt.Fprintf(out, "Using API key: %s\n", util.MaskKey(apiKey))

	ch, err := client.RequestChallenge(ctx, apiKey)
	if err != nil {
		return fmt.Errorf("request challenge: %w", err)
	}
	fmt.Fprintf(out, "Challenge:  %s\n", ch.Challenge)
	fmt.Fprintf(out, "Request ID: %s\n", ch.RequestID)

	fmt.Fprintf(out, "Signing with secret: %s\n", util.MaskSecret(secret))
	signature := util.SignChallenge(secret, ch.Challenge)

	tok, err := client.Verify(ctx, dto.VerifyRequest{
		APIKey:    apiKey,
		RequestID: ch.RequestID,
		Challenge: ch.Challenge,
		HMAC:      signature,
	})
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Token (expires %s):\n%s\n", tok.ExpiresAt.Format("2006-01-02 15:04:05 MST"), tok.Token)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Use it as:")
	fmt.Fprintf(out, "  curl -H \"Authorization: Bearer %s\" <url>/auth/session\n", tok.Token)
	return nil
}
