package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/notes/internal/config"
	"github.com/vango-dev/notes/internal/errors"
	"github.com/vango-dev/notes/internal/views"
	"github.com/vango-dev/notes/pkg/router"
)

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the route table in priority order",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tPATTERN\tVIEW\tPROPS")
			for i, e := range views.Routes() {
				props := "-"
				if e.ParamsAsProps {
					props = "params"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, e.Pattern, e.View, props)
			}
			return w.Flush()
		},
	}
}

type resolveOutput struct {
	Location string            `json:"location"`
	View     string            `json:"view"`
	Pattern  string            `json:"pattern,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
	Props    map[string]string `json:"props,omitempty"`
}

func resolveCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <location>",
		Short: "Resolve a location to its view",
		Long: `Resolve a location the way the host shell does, using the
configured history mode and base.

Examples:
  notes resolve /note/42
  NOTES_HISTORY=hash notes resolve '#/edit/7'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			r := router.New(views.Table(),
				router.WithHistory(cfg.HistoryMode()),
				router.WithBase(cfg.Router.Base),
			)
			nav, err := r.Navigate(args[0])
			if err != nil {
				return errors.New("N400").WithDetail(err.Error()).Wrap(err)
			}
			if !nav.Found() {
				return errors.New("N401").WithDetail(args[0])
			}

			out := resolveOutput{
				Location: nav.Location,
				View:     nav.View.String(),
				Pattern:  nav.Match.Entry.Pattern,
				Params:   nav.Match.Params,
				Props:    nav.Match.Props,
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
