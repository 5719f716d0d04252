package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/wiretap/internal/config"
	"github.com/vango-dev/wiretap/internal/errors"
)

func initCmd(configPath *string) *cobra.Command {
	var (
		upstream string
		useTOML  bool
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write wiretap.json (or wiretap.toml with --toml) holding the default
settings into the --config directory.

An existing file is left alone unless --force is given, in which case
it is loaded, updated with the flags and written back in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := initConfig(*configPath, force)
			if err != nil {
				return err
			}
			if upstream != "" {
				cfg.Upstream = upstream
			}

			if cfg.Path() != "" {
				err = cfg.Save()
			} else {
				err = cfg.SaveTo(initTarget(*configPath, useTOML))
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			success(out, "Wrote %s", cfg.Path())
			if cfg.Upstream == "" {
				info(out, "Set \"upstream\" before running 'wiretap serve'")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&upstream, "upstream", "u", "", "Upstream websocket URL")
	cmd.Flags().BoolVar(&useTOML, "toml", false, "Write wiretap.toml instead of wiretap.json")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Rewrite an existing config file")

	return cmd
}

// initConfig returns the loaded config when path already holds one and
// force is set, or the defaults when it holds none.
func initConfig(path string, force bool) (*config.Config, error) {
	if path == "" {
		path = "."
	}

	var exists bool
	if isConfigFile(path) {
		_, err := os.Stat(path)
		exists = err == nil
	} else {
		exists = config.Exists(path)
	}
	if !exists {
		return config.New(), nil
	}
	if !force {
		return nil, errors.New("W102").
			WithDetail("A configuration file already exists at " + path).
			WithSuggestion("Pass --force to rewrite it")
	}
	if isConfigFile(path) {
		return config.LoadFile(path)
	}
	return config.Load(path)
}

// initTarget is the file a fresh config is written to.
func initTarget(path string, useTOML bool) string {
	if path == "" {
		path = "."
	}
	if isConfigFile(path) {
		return path
	}
	if useTOML {
		return filepath.Join(path, config.TOMLConfigFileName)
	}
	return filepath.Join(path, config.ConfigFileName)
}

func isConfigFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".json" || ext == ".toml"
}
