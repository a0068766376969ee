package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ixwindow/ixwindow/internal/config"
)

func newConfigCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the config section for the window manager",
		Example: `  ixwindow config validate
  ixwindow config validate --wm bspwm --config ~/dotfiles/ixwindow.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadSettings(v).loadConfig(detectWM)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config: ok (%s, [%s])\n", cfg.Path, cfg.WM)
			return nil
		},
	}

	printCmd := &cobra.Command{
		Use:   "print",
		Short: "Print the effective config section as TOML",
		Long: `Print the config section for the window manager with every default
filled in. The output is a valid config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadSettings(v).loadConfig(detectWM)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", cfg.Path)
			return config.Encode(cmd.OutOrStdout(), cfg)
		},
	}

	explainCmd := &cobra.Command{
		Use:   "explain KEY",
		Short: "Show the effective value of a key and where it came from",
		Example: `  ixwindow config explain x
  ixwindow config explain print_info.substitute_rules.WM_CLASS`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(v).loadConfig(detectWM)
			if err != nil {
				return err
			}
			value, src, err := cfg.Explain(args[0])
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(value)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "path: %s\n", args[0])
			fmt.Fprintf(w, "source: %s\n", src)
			fmt.Fprintf(w, "value:\n%s", out)
			return nil
		},
	}

	cmd.AddCommand(validateCmd, printCmd, explainCmd)
	return cmd
}
