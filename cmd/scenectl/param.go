package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikoskalogridis/scenestate/internal/params"
)

func newParamCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "param",
		Short: "Read and write the params database",
		Long: `Read and write the SQLite params database used by scened. Toggles
are re-read by the daemon periodically and at every onroad transition.`,
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "Params database path")
	_ = cmd.MarkPersistentFlagRequired("db")

	open := func() (*params.SQLiteStore, error) {
		return params.OpenSQLite(dbPath)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get KEY",
		Short: "Print a param value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open()
			if err != nil {
				return err
			}
			defer st.Close()
			v, err := st.Get(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Write a param value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open()
			if err != nil {
				return err
			}
			defer st.Close()
			return st.Put(args[0], args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every param as KEY=VALUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open()
			if err != nil {
				return err
			}
			defer st.Close()
			keys, err := st.Keys()
			if err != nil {
				return err
			}
			for _, k := range keys {
				v, err := st.Get(k)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, v)
			}
			return nil
		},
	})

	return cmd
}
