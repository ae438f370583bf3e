package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/chaosfind/internal/config"
	"github.com/san-kum/chaosfind/internal/storage"
	"github.com/san-kum/chaosfind/internal/viz"
)

const defaultConfigPath = "chaosfind.json"

var (
	configPath string
	preset     string
	envFile    string
	showYAML   bool
)

// loadConfig resolves the configuration: preset or config file, then the
// environment. A missing config file is created with the defaults.
func loadConfig() (*config.SearchConfig, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg *config.SearchConfig
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		slog.Debug("using preset", "preset", preset)
	} else {
		var (
			created bool
			err     error
		)
		cfg, created, err = config.LoadOrCreate(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if created {
			slog.Info("wrote default configuration", "path", configPath)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore returns the store named by --data, or by the config.
func openStore() (*storage.Store, error) {
	dir := dataDir
	if dir == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		dir = cfg.OutputPath
	}
	return storage.New(dir), nil
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "config file (json or yaml)")
	cmd.Flags().StringVarP(&preset, "preset", "p", "", "use a preset instead of the config file")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file with CHAOSFIND_* overrides")
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "manage the search configuration",
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigPath
			if len(args) > 0 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			cfg := config.Default()
			if preset != "" {
				if cfg = config.GetPreset(preset); cfg == nil {
					return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
				}
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&preset, "preset", "p", "", "start from a preset")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var data []byte
			if showYAML {
				data, err = yaml.Marshal(cfg)
			} else {
				data, err = json.MarshalIndent(cfg, "", "  ")
			}
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
	addConfigFlags(showCmd)
	showCmd.Flags().BoolVar(&showYAML, "yaml", false, "print as yaml")

	configCmd.AddCommand(initCmd, showCmd)
	return configCmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(viz.HeaderStyle.Render("presets"))
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Printf("  %-8s %s\n", viz.Title.Render(name), viz.Subtle.Render(fmt.Sprintf(
					"dims=%d iterations=%d attempts=%d batches=%d",
					cfg.Dimensions, cfg.Iterations, cfg.MaxAttempts, cfg.Batches)))
			}
			return nil
		},
	}
}
