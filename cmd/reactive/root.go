package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// options holds state shared by every subcommand. Flag values are read
// through v so that they can also come from a config file or REACTIVE_*
// environment variables.
type options struct {
	v      *viper.Viper
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{
		v:      viper.New(),
		logger: slog.New(slog.DiscardHandler),
	}

	root := &cobra.Command{
		Use:   "reactive",
		Short: "Observe and script settings files",
		Long: `reactive loads a settings file into an observable document, watches it
for changes and runs Lua scripts that hook into those changes.

Settings files may be TOML, YAML or JSON; the format is chosen by extension.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.init(cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "config file for reactive itself (TOML, YAML or JSON)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	_ = opts.v.BindPFlags(pf)

	root.AddCommand(
		newWatchCmd(opts),
		newGetCmd(),
		newSetCmd(opts),
		newUnsetCmd(opts),
		newRunCmd(opts),
		newVersionCmd(),
	)
	return root
}

// init reads the optional config file and environment, then builds the logger.
func (o *options) init(stderr io.Writer) error {
	o.v.SetEnvPrefix("REACTIVE")
	o.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	o.v.AutomaticEnv()

	if cfgFile := o.v.GetString("config"); cfgFile != "" {
		o.v.SetConfigFile(cfgFile)
		if err := o.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
	}

	logger, err := newLogger(stderr, o.v.GetString("log-level"), o.v.GetString("log-format"))
	if err != nil {
		return err
	}
	o.logger = logger
	return nil
}

// newLogger builds a slog logger writing to w.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", level)
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (must be text or json)", format)
	}
}
