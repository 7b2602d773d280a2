package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/florianilch/claudine-gateway/internal/app"
	"github.com/florianilch/claudine-gateway/internal/tokensource"
)

// authCommand returns the 'auth' subcommand for managing the upstream credential.
func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the upstream credential",
		Commands: []*cli.Command{
			authLoginCommand(),
			authLogoutCommand(),
		},
	}
}

// authLoginCommand returns the 'auth login' subcommand.
func authLoginCommand() *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage:  "Save an upstream API key to the configured storage",
		Action: authLoginAction,
	}
}

// authLogoutCommand returns the 'auth logout' subcommand.
func authLogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Clear the upstream API key from the configured storage",
		Action: authLogoutAction,
	}
}

// writableStore returns the configured credential store, rejecting env storage.
func writableStore(cmd *cli.Command) (tokensource.Store, error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Auth.Storage == app.TokenStorageTypeEnv {
		return nil, fmt.Errorf("env storage is read-only: set %s or configure file or keyring storage", cfg.Auth.EnvVar)
	}

	store, err := cfg.Auth.NewTokenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}
	return store, nil
}

func authLoginAction(ctx context.Context, cmd *cli.Command) error {
	store, err := writableStore(cmd)
	if err != nil {
		return err
	}

	key, err := readSecureInput(ctx, "Enter upstream API key: ")
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key cannot be empty")
	}

	if err := store.Write(ctx, key); err != nil {
		return fmt.Errorf("failed to write credential: %w", err)
	}

	fmt.Println("=== Login Successful ===")
	fmt.Println("Credential saved to configured storage")

	return nil
}

func authLogoutAction(ctx context.Context, cmd *cli.Command) error {
	store, err := writableStore(cmd)
	if err != nil {
		return err
	}

	// Clear via empty write to maintain storage abstraction
	if err := store.Write(ctx, ""); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}

	fmt.Println("=== Logout Successful ===")
	fmt.Println("Credential cleared from configured storage")

	return nil
}

// readSecureInput reads user input with hidden display and context cancellation support.
// Goroutine+select pattern required because term.ReadPassword has no native context support.
func readSecureInput(ctx context.Context, prompt string) (string, error) {
	fmt.Print(prompt)
	defer fmt.Println()

	type result struct {
		value string
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		inputBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		resultCh <- result{value: string(inputBytes), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return "", fmt.Errorf("failed to read input: %w", res.err)
		}
		return res.value, nil
	}
}
