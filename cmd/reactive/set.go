package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/dshills/reactive"
	"github.com/dshills/reactive/internal/config"
)

func newSetCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set <file> <path> <value>",
		Short: "Set a settings value and save the file",
		Long: `Set writes value at path and saves the file in its own format. A value
that parses as JSON (numbers, true, false, null, arrays, objects, quoted
strings) is stored as such; anything else is stored as a string. The file is
created if it does not exist.`,
		Args: cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			return editFile(o, args[0], func(s *config.Settings) error {
				return s.Set(args[1], parseValue(args[2]))
			})
		},
	}
}

func newUnsetCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <file> <path>",
		Short: "Remove a settings value and save the file",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return editFile(o, args[0], func(s *config.Settings) error {
				return s.Delete(args[1])
			})
		},
	}
}

// editFile loads path into settings kept in sync with the file and applies
// edit. The file is written by the sync's own binding.
func editFile(o *options, path string, edit func(*config.Settings) error) error {
	settings := config.NewSettings(config.EmptyDocument(),
		reactive.WithName("settings"),
		reactive.WithLogger(o.logger),
	)
	defer settings.Close()

	fsync, err := config.NewFileSync(path, settings, config.WithSyncLogger(o.logger))
	if err != nil {
		return err
	}
	defer fsync.Close()

	if _, err := fsync.Load(); err != nil {
		return err
	}
	if err := edit(settings); err != nil {
		return err
	}
	return fsync.LastError()
}

func parseValue(s string) any {
	if gjson.Valid(s) {
		return json.RawMessage(s)
	}
	return s
}
