package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
)

// modelsCommand returns the 'models' subcommand listing the model catalog.
func modelsCommand() *cli.Command {
	return &cli.Command{
		Name:   "models",
		Usage:  "List the models served by the configured upstream",
		Action: modelsAction,
	}
}

func modelsAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	catalog, err := cfg.Models.NewCatalog(cfg.Upstream.Provider)
	if err != nil {
		return fmt.Errorf("failed to build model catalog: %w", err)
	}

	defaultID := catalog.Default().ID
	tw := tabwriter.NewWriter(cmd.Root().Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBACKEND\tCONTEXT\tDEFAULT")
	for _, m := range catalog.List() {
		marker := ""
		if m.ID == defaultID {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", m.ID, m.BackendID, m.ContextWindow, marker)
	}
	return tw.Flush()
}
