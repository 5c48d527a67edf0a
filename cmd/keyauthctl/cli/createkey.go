package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/makkenzo/keyauth-service/internal/config"
	"github.com/makkenzo/keyauth-service/internal/domain/credential"
	"github.com/makkenzo/keyauth-service/internal/metrics"
	"github.com/makkenzo/keyauth-service/internal/sealer"
	"github.com/makkenzo/keyauth-service/internal/service"
	"github.com/makkenzo/keyauth-service/internal/storage/postgres"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultAdminKeyName = "Admin API Key"

func newCreateKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "createkey [name]",
		Short: "Create a credential directly in the database",
		Long:  "Create a credential without going through the HTTP API, typically the first admin key. The secret is printed once and cannot be retrieved again.",
		Example: `  keyauthctl createkey
  keyauthctl createkey "CI pipeline" --config configs/config.prod.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := defaultAdminKeyName
			if len(args) == 1 {
				name = args[0]
			}
			return runCreateKey(cmd.Context(), cmd.OutOrStdout(), name)
		},
	}
}

func runCreateKey(ctx context.Context, out io.Writer, name string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return errors.New("database.url (DATABASE_URL) is required")
	}

	logger := zap.NewNop()
	pool, err := postgres.NewPgxPool(ctx, &cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool, logger); err != nil {
		return err
	}

	secretSealer, err := sealer.NewSealer(cfg.Auth.SecretSealingKey)
	if err != nil {
		return fmt.Errorf("invalid auth.secretSealingKey: %w", err)
	}

	repo := postgres.NewCredentialRepository(pool, logger)
	credentials := service.NewCredentialService(repo, secretSealer, service.NewDirectUsageRecorder(repo, metrics.NewNop(), logger), logger)

	cred, err := credentials.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("create credential: %w", err)
	}

	printCreatedCredential(out, cred)
	return nil
}

func printCreatedCredential(out io.Writer, cred *credential.Credential) {
	fmt.Fprintln(out, "Credential created. Save the secret now; it will not be shown again.")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Name:    %s\n", cred.Name)
	fmt.Fprintf(out, "API Key: %s\n", cred.Key)
	fmt.Fprintf(out, "Secret:  %s\n", cred.Secret)
	fmt.Fprintf(out, "Created: %s\n", cred.CreatedAt.Format(time.RFC3339))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Get a token with: keyauthctl authflow %s <secret>\n", cred.Key)
}
