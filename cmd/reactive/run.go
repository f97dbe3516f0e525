package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/reactive"
	"github.com/dshills/reactive/internal/config"
	"github.com/dshills/reactive/internal/script"
)

func newRunCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script.lua>",
		Short: "Run a Lua script",
		Long: `Run executes a Lua script in a sandboxed runtime with the reactive
module loaded. With --settings, the script also gets a settings table backed
by that file; changes it makes are saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []script.Option{
				script.WithOutput(cmd.OutOrStdout()),
				script.WithLogger(o.logger),
			}

			var fsync *config.FileSync
			if path := o.v.GetString("run.settings"); path != "" {
				settings := config.NewSettings(config.EmptyDocument(),
					reactive.WithName("settings"),
					reactive.WithLogger(o.logger),
				)
				defer settings.Close()

				var err error
				fsync, err = config.NewFileSync(path, settings, config.WithSyncLogger(o.logger))
				if err != nil {
					return err
				}
				defer fsync.Close()
				if _, err := fsync.Load(); err != nil {
					return err
				}
				opts = append(opts, script.WithSettings(settings))
			}

			rt, err := script.NewRuntime(opts...)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.DoFile(args[0]); err != nil {
				return fmt.Errorf("running %s: %w", args[0], err)
			}
			if fsync != nil {
				return fsync.LastError()
			}
			return nil
		},
	}
	cmd.Flags().String("settings", "", "settings file exposed to the script")
	_ = o.v.BindPFlag("run.settings", cmd.Flags().Lookup("settings"))
	return cmd
}
