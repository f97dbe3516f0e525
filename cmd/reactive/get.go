package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/dshills/reactive/internal/config"
)

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <file> [path]",
		Short: "Print a settings value",
		Long: `Get prints the value at path (gjson syntax, e.g. "editor.tabSize") as
JSON. Without a path the whole document is printed.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}

			var res gjson.Result
			if len(args) == 1 {
				res = gjson.ParseBytes(doc.Bytes())
			} else {
				res = doc.Get(args[1])
				if !res.Exists() {
					return fmt.Errorf("%s: %q is not set", args[0], args[1])
				}
			}

			raw, _ := cmd.Flags().GetBool("raw")
			if raw && res.Type == gjson.String {
				fmt.Fprintln(cmd.OutOrStdout(), res.Str)
				return nil
			}
			if res.IsObject() || res.IsArray() {
				fmt.Fprint(cmd.OutOrStdout(), string(pretty.Pretty([]byte(res.Raw))))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Raw)
			return nil
		},
	}
	cmd.Flags().BoolP("raw", "r", false, "print strings without quotes")
	return cmd
}

// loadDocument reads a settings file into a document.
func loadDocument(path string) (config.Document, error) {
	m, err := config.NewLoader().Load(path)
	if err != nil {
		return config.Document{}, err
	}
	if m == nil {
		return config.Document{}, fmt.Errorf("%s: file does not exist", path)
	}
	return config.FromMap(m)
}
