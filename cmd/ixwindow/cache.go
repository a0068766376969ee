package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ixwindow/ixwindow/internal/icon"
)

func newCacheCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached application icons",
	}

	openStore := func() (*icon.Store, error) {
		cfg, err := loadSettings(v).loadConfig(detectWM)
		if err != nil {
			return nil, err
		}
		return icon.NewStore(nil, icon.OptionsFromConfig(cfg)), nil
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached icon files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			files, err := store.List()
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete cached icon files",
		Long: `Delete every cached icon. Icons are extracted again the next time
their application gets focus.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			n, err := store.Clear()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d icons\n", n)
			return nil
		},
	}

	cmd.AddCommand(listCmd, clearCmd)
	return cmd
}
