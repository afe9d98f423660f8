package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"broadcast/internal/config"
	"broadcast/internal/paths"
	"broadcast/internal/tui"
)

var (
	configShowTOML    bool
	configInitTOML    bool
	configInitForce   bool
	configInteractive bool
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create project configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
	cmd.Flags().BoolVar(&configShowTOML, "toml", false, "Print as TOML instead of YAML")
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration and workspace directories",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
	cmd.Flags().BoolVar(&configInitTOML, "toml", false, "Write broadcast.toml instead of broadcast.yaml")
	cmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing configuration file")
	cmd.Flags().BoolVarP(&configInteractive, "interactive", "i", false, "Pick mode, voice and encode settings interactively")
	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	if err := config.LoadDotEnv(pp.Root); err != nil {
		return err
	}
	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return err
	}

	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), struct {
			File       string                    `json:"file"`
			Config     config.Config             `json:"config"`
			Validation []config.ValidationResult `json:"validation"`
		}{File: pp.ConfigFile, Config: cfg, Validation: cfg.Validate(pp.Root)})
	}

	var data []byte
	if configShowTOML {
		data, err = cfg.MarshalTOML()
	} else {
		data, err = cfg.Marshal()
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, string(data))
	if len(data) == 0 || data[len(data)-1] != '\n' {
		fmt.Fprintln(out)
	}
	for _, r := range cfg.Validate(pp.Root) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", r.Level, r.Message)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	if err := pp.EnsureRoot(); err != nil {
		return err
	}

	target := filepath.Join(pp.Root, "broadcast.yaml")
	if configInitTOML {
		target = filepath.Join(pp.Root, "broadcast.toml")
	}
	if _, err := os.Stat(target); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", target)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}

	cfg := config.Default()
	if configInteractive {
		res, err := tui.RunProfileSetup(cmd.OutOrStdout(), cfg)
		if err != nil {
			return err
		}
		if res.Cancelled {
			return errors.New("config init cancelled")
		}
		res.Apply(&cfg)
	}

	var data []byte
	if configInitTOML {
		data, err = cfg.MarshalTOML()
	} else {
		data, err = cfg.Marshal()
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	pp = paths.ApplyConfig(pp, cfg)
	if err := pp.EnsureMetaDirs(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "wrote %s\n", target)
	fmt.Fprintf(out, "cache:  %s\noutput: %s\nlogs:   %s\n", pp.CacheDir, pp.OutputDir, pp.LogsDir)
	if other := otherConfigFile(target); other != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "note: %s also exists; broadcast.yaml takes precedence\n", other)
	}
	return nil
}

func otherConfigFile(written string) string {
	dir := filepath.Dir(written)
	other := filepath.Join(dir, "broadcast.toml")
	if strings.HasSuffix(written, ".toml") {
		other = filepath.Join(dir, "broadcast.yaml")
	}
	if ok, _ := paths.FileExists(other); ok {
		return other
	}
	return ""
}
