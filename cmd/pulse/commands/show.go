package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teammetrics/pulse/internal/collect"
	"github.com/teammetrics/pulse/internal/config"
	"github.com/teammetrics/pulse/internal/snapshot"
)

// NewShowCommand builds the "show" command: print a previously persisted
// snapshot, by run ID or the most recent one.
func NewShowCommand() *cobra.Command {
	var (
		configPath string
		runID      string
		env        string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a previously persisted snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, env)
			if err != nil {
				return err
			}

			store := snapshot.New(cfg.Snapshot.Dir).WithEnvironment(env)

			id := runID
			if id == "" {
				latest, ok := store.Latest()
				if !ok {
					return fmt.Errorf("no snapshots found in %s", cfg.Snapshot.Dir)
				}

				id = latest
			}

			snap, err := store.Load(id)
			if err != nil {
				return fmt.Errorf("load snapshot %q: %w", id, err)
			}

			fmt.Fprint(cmd.OutOrStdout(), collect.BuildReport(snap).String())

			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to the config file")
	cmd.Flags().StringVar(&runID, "run", "", "run ID to show (default: most recent)")
	cmd.Flags().StringVar(&env, "env", "production", "target environment name")

	return cmd
}
