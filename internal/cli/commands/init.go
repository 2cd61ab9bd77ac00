package commands

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	initDatabaseURL string
	initPort        int
	initRedisAddr   string
	initJWTSecret   string
	initForce       bool
)

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a logiflow.yml configuration",
		Long: `Write a logiflow.yml in the current directory.

Values not given as flags are prompted for interactively. An existing
logiflow.yml is never overwritten unless --force is set.`,
		RunE: runInit,
	}

	cmd.Flags().StringVar(&initDatabaseURL, "database-url", "", "PostgreSQL connection URL")
	cmd.Flags().IntVar(&initPort, "port", 8080, "Server port")
	cmd.Flags().StringVar(&initRedisAddr, "redis-addr", "", "Redis address (empty uses the in-process cache)")
	cmd.Flags().StringVar(&initJWTSecret, "jwt-secret", "", "Secret for verifying JWT role claims")
	cmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing logiflow.yml")
	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat("logiflow.yml"); err == nil && !initForce {
		return fmt.Errorf("logiflow.yml already exists (use --force to overwrite)")
	}

	if initDatabaseURL == "" {
		prompt := &survey.Input{
			Message: "PostgreSQL URL:",
			Default: "postgres://localhost:5432/logiflow?sslmode=disable",
		}
		if err := survey.AskOne(prompt, &initDatabaseURL, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	if !cmd.Flags().Changed("redis-addr") {
		prompt := &survey.Input{
			Message: "Redis address (empty for in-process cache):",
		}
		if err := survey.AskOne(prompt, &initRedisAddr); err != nil {
			return err
		}
	}

	if initJWTSecret == "" && !cmd.Flags().Changed("jwt-secret") {
		prompt := &survey.Password{
			Message: "JWT secret (empty disables token roles):",
		}
		if err := survey.AskOne(prompt, &initJWTSecret); err != nil {
			return err
		}
	}

	content := fmt.Sprintf(`server:
  host: 0.0.0.0
  port: %d
  api_prefix: /api
  graphiql: false

database:
  url: %s

redis:
  addr: %q

cache:
  enabled: true
  ttl: 5m

auth:
  jwt_secret: %q
  default_role: viewer

log:
  level: info
  json: true
`, initPort, initDatabaseURL, initRedisAddr, initJWTSecret)

	if err := os.WriteFile("logiflow.yml", []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write logiflow.yml: %w", err)
	}

	successColor := color.New(color.FgGreen, color.Bold)
	successColor.Fprintln(cmd.OutOrStdout(), "Wrote logiflow.yml")
	infoColor := color.New(color.FgCyan)
	infoColor.Fprintln(cmd.OutOrStdout(), "Next: logiflow migrate && logiflow serve")
	return nil
}
