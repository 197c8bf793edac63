/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Config commands. Writes the default TOML configuration template and shows the
effective configuration after files, environment and flags are merged.
*/

package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/kleascm/protodec/pkg/config"
	"github.com/spf13/cobra"
)

// RunConfigInit writes the configuration template to a file or stdout
func RunConfigInit(cmd *cobra.Command, args []string) error {
	path := "protodec.toml"
	if len(args) > 0 {
		path = args[0]
	}
	if path == "-" {
		return config.WriteTemplate(cmd.OutOrStdout())
	}

	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if err := config.WriteTemplate(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	newConsole(cmd.OutOrStdout()).Success("configuration written to %s", path)
	return nil
}

// RunConfigShow prints the effective configuration as TOML
func RunConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
}
