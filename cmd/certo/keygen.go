package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"

	"github.com/go-jose/go-jose/v4"
	"github.com/spf13/cobra"
)

// newKeygenCmd generates an Ed25519 signing key and prints the base64
// PKCS#8 encoding expected in ED25519_PRIVATE_KEY_PKCS8, plus the public
// JWK issuers will serve.
func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an Ed25519 credential signing key",
		RunE: func(cmd *cobra.Command, args []string) error {
			public, private, err := ed25519.GenerateKey(rand.Reader)
			if err != nil {
				return fmt.Errorf("generate key: %w", err)
			}
			der, err := x509.MarshalPKCS8PrivateKey(private)
			if err != nil {
				return fmt.Errorf("marshal key: %w", err)
			}
			pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

			jwk := jose.JSONWebKey{Key: public, Algorithm: string(jose.EdDSA), Use: "sig"}
			jwkJSON, err := json.MarshalIndent(jwk, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal jwk: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "ED25519_PRIVATE_KEY_PKCS8:")
			fmt.Fprintln(out, base64.StdEncoding.EncodeToString(pemBytes))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "public JWK:")
			fmt.Fprintln(out, string(jwkJSON))
			return nil
		},
	}
}
