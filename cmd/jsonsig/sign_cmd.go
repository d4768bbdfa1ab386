package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"jsonsig/internal/domain"
	"jsonsig/internal/usecase"

	"github.com/spf13/cobra"
)

func addSignCommand(root *cobra.Command, flags *globalFlags) {
	var (
		kid      string
		inPath   string
		embedKID bool
		embedJWK bool
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a JSON value read from --in or stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := readInput(cmd, inPath)
			if err != nil {
				return err
			}
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			var opts []usecase.SignOption
			if embedKID {
				opts = append(opts, usecase.WithEmbeddedKID())
			}
			if embedJWK {
				opts = append(opts, usecase.WithEmbeddedJWK())
			}
			obj, err := a.Engine.Sign(cmd.Context(), kid, json.RawMessage(payload), opts...)
			if err != nil {
				return err
			}
			return writeJSON(cmd, obj)
		},
	}
	cmd.Flags().StringVar(&kid, "kid", "", "key id to sign with")
	cmd.Flags().StringVar(&inPath, "in", "-", "JSON payload file, - for stdin")
	cmd.Flags().BoolVar(&embedKID, "embed-kid", false, "copy the kid into the signed object")
	cmd.Flags().BoolVar(&embedJWK, "embed-jwk", false, "embed the public JWK in the signed object")
	_ = cmd.MarkFlagRequired("kid")
	root.AddCommand(cmd)
}

func addVerifyCommand(root *cobra.Command, flags *globalFlags) {
	var (
		kid    string
		inPath string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a signed object and print its payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readInput(cmd, inPath)
			if err != nil {
				return err
			}
			var obj domain.SignedObject
			if err := json.Unmarshal(data, &obj); err != nil {
				return fmt.Errorf("decode signed object: %w", err)
			}
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			result := a.Engine.Verify(cmd.Context(), obj, kid)
			if !result.OK() {
				return errors.New("verification failed: " + result.Error)
			}
			return writeJSON(cmd, result.Payload)
		},
	}
	cmd.Flags().StringVar(&kid, "kid", "", "key id, when the object does not name one")
	cmd.Flags().StringVar(&inPath, "in", "-", "signed object file, - for stdin")
	root.AddCommand(cmd)
}
