package main

import (
	"encoding/json"

	"jsonsig/internal/domain"

	"github.com/spf13/cobra"
)

func addKeygenCommand(root *cobra.Command, flags *globalFlags) {
	var alg string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a key pair and print its kid and public JWK",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			key, err := a.Engine.GenerateKeyPair(cmd.Context(), domain.Algorithm(alg))
			if err != nil {
				return err
			}
			return writeJSON(cmd, key)
		},
	}
	cmd.Flags().StringVar(&alg, "alg", "", "signing algorithm (default from DEFAULT_ALGORITHM)")
	root.AddCommand(cmd)
}

func addPubkeyCommand(root *cobra.Command, flags *globalFlags) {
	cmd := &cobra.Command{
		Use:   "pubkey <kid>",
		Short: "Print the public JWK stored under kid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			jwk, err := a.Engine.PublicKey(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, json.RawMessage(jwk))
		},
	}
	root.AddCommand(cmd)
}

func addKeystoreCommand(root *cobra.Command, flags *globalFlags) {
	keystore := &cobra.Command{
		Use:   "keystore",
		Short: "Key store administration",
	}

	var addr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Expose the configured key store over gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.ServeKeyStore(cmd.Context(), addr)
		},
	}
	serve.Flags().StringVar(&addr, "addr", ":9090", "listen address")

	keystore.AddCommand(serve)
	root.AddCommand(keystore)
}
