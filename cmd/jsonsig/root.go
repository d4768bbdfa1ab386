package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"jsonsig/internal/app"
	"jsonsig/internal/config"

	"github.com/spf13/cobra"
)

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

type globalFlags struct {
	configPath string
	verbose    bool
}

func run(ctx context.Context, args []string, s streams) int {
	cmd := newRootCmd(s)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(s.err, "error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(s streams) *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "jsonsig",
		Short: "Sign and verify JSON values with detached JWS signatures",
		Long: `jsonsig signs JSON values with keys held in the configured key store and
verifies signed objects. Key store selection and the other settings come from
the environment (KEYSTORE_BACKEND, REDIS_ADDR, POSTGRES_DSN, ...) or --config.

Keys only outlive a single invocation when a shared backend is configured.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetIn(s.in)
	cmd.SetOut(s.out)
	cmd.SetErr(s.err)

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (env vars override it)")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log at the configured level instead of warn")

	addKeygenCommand(cmd, flags)
	addPubkeyCommand(cmd, flags)
	addSignCommand(cmd, flags)
	addVerifyCommand(cmd, flags)
	addKeystoreCommand(cmd, flags)
	return cmd
}

// openApp loads configuration and opens the key store for one command.
func openApp(cmd *cobra.Command, flags *globalFlags) (*app.App, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if !flags.verbose {
		cfg.LogLevel = "warn"
	}
	return app.New(cmd.Context(), cfg, app.Options{LogOutput: cmd.ErrOrStderr()})
}

// readInput reads path, or the command's stdin when path is empty or "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
