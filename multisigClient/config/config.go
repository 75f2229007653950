package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"

	"github.com/pushchain/svm-multisig/multisigClient/constant"
	msigerrors "github.com/pushchain/svm-multisig/multisigClient/errors"
)

//go:embed default_config.json
var defaultConfigJSON []byte

func validateConfig(cfg *Config) error {
	// Validate log level
	if cfg.LogLevel < 0 || cfg.LogLevel > 5 {
		return msigerrors.NewConfigError("log level must be between 0 and 5")
	}

	// Validate log format
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return msigerrors.NewConfigError("log format must be 'json' or 'console'")
	}

	// Network defaults
	if cfg.Cluster == "" {
		cfg.Cluster = ClusterDevnet
	}
	if _, ok := clusterEndpoints[cfg.Cluster]; !ok {
		return msigerrors.NewConfigError(fmt.Sprintf("unknown cluster %q", cfg.Cluster)).
			WithContext("allowed", "devnet, testnet, mainnet-beta, localnet")
	}
	if cfg.Commitment == "" {
		cfg.Commitment = "confirmed"
	}
	switch cfg.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return msigerrors.NewConfigError(fmt.Sprintf("unknown commitment %q", cfg.Commitment))
	}
	if cfg.ConfirmTimeoutSeconds == 0 {
		cfg.ConfirmTimeoutSeconds = 60
	}
	if cfg.ConfirmTimeoutSeconds < 0 {
		return msigerrors.NewConfigError("confirm timeout must be positive")
	}

	// Program
	if cfg.ProgramID == "" {
		cfg.ProgramID = constant.DefaultMultisigProgramID
	}
	if _, err := solana.PublicKeyFromBase58(cfg.ProgramID); err != nil {
		return msigerrors.NewConfigError("invalid program id").WithContext("program_id", cfg.ProgramID)
	}
	if cfg.AccountSize == 0 {
		return msigerrors.NewConfigError("account size must be greater than 0")
	}

	// Signer selection
	if cfg.Ledger && cfg.PrivateKey != "" {
		return msigerrors.NewConfigError("private-key and ledger are mutually exclusive")
	}

	// Optional public keys
	for name, value := range map[string]string{
		"signer":          cfg.Signer,
		"nonce_account":   cfg.NonceAccount,
		"nonce_authority": cfg.NonceAuthority,
	} {
		if value == "" {
			continue
		}
		if _, err := solana.PublicKeyFromBase58(value); err != nil {
			return msigerrors.NewConfigError(fmt.Sprintf("invalid %s", name)).WithContext(name, value)
		}
	}
	if cfg.Nonce != "" {
		if _, err := solana.HashFromBase58(cfg.Nonce); err != nil {
			return msigerrors.NewConfigError("invalid nonce value").WithContext("nonce", cfg.Nonce)
		}
	}

	if cfg.Output == "" {
		cfg.Output = OutputText
	}
	if cfg.Output != OutputText && cfg.Output != OutputJSON {
		return msigerrors.NewConfigError("output must be 'text' or 'json'")
	}

	return nil
}

// Save writes the given config to <NodeDir>/config/msig_config.json.
func Save(cfg *Config, basePath string) error {
	if err := validateConfig(cfg); err != nil {
		return msigerrors.Wrap(err, "invalid config")
	}

	configDir := filepath.Join(basePath, constant.ConfigSubdir)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return msigerrors.Wrapf(err, "failed to create config directory %s", configDir)
	}

	configFile := filepath.Join(configDir, constant.ConfigFileName)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return msigerrors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(configFile, data, 0o600); err != nil {
		return msigerrors.Wrapf(err, "failed to write config file %s", configFile)
	}
	return nil
}

// FilePath returns the config file location under basePath.
func FilePath(basePath string) string {
	return filepath.Join(basePath, constant.ConfigSubdir, constant.ConfigFileName)
}
