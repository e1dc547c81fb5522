// Package common provides shared utilities for the algomsg CLI commands.
//
// This package contains helper functions used across the standalone binaries
// (algomsgd, algomsg-keygen) to reduce code duplication:
//
//   - Key loading from mnemonic files, with ephemeral-key fallback
//   - Logger construction from a level flag
package common

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/algomesh/algomsg/crypto"
)

// LoadOrGenerateKey loads a private key from a 25-word mnemonic file, or
// generates an ephemeral key when path is empty. An ephemeral identity's
// mnemonic is logged so clients can still be pointed at it.
func LoadOrGenerateKey(log *slog.Logger, path string) (*crypto.PrivateKey, error) {
	if path == "" {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		words, err := key.Mnemonic()
		if err != nil {
			return nil, err
		}
		log.Warn("no mnemonic file configured, generated ephemeral identity", "mnemonic", words)
		return key, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mnemonic file: %w", err)
	}
	key, err := crypto.FromMnemonic(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse mnemonic file %s: %w", path, err)
	}
	return key, nil
}

// NewLogger builds a JSON slog logger at the named level (debug, info, warn,
// error).
func NewLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler), nil
}
