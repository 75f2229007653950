package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pushchain/svm-multisig/multisigClient/constant"
	msigerrors "github.com/pushchain/svm-multisig/multisigClient/errors"
)

// Keys shared by the config file, MSIG_* environment variables and CLI flags.
// A flag binds to the key with underscores replaced by dashes (rpc_url -> --rpc-url).
const (
	LogLevelKey              = "log_level"
	LogFormatKey             = "log_format"
	LogSamplerKey            = "log_sampler"
	ClusterKey               = "cluster"
	RPCURLKey                = "rpc_url"
	CommitmentKey            = "commitment"
	ConfirmTimeoutSecondsKey = "confirm_timeout_seconds"
	ProgramIDKey             = "program_id"
	AccountSizeKey           = "account_size"
	PrivateKeyKey            = "private_key"
	LedgerKey                = "ledger"
	AccountNumberKey         = "account_number"
	SignerKey                = "signer"
	NonceAccountKey          = "nonce_account"
	NonceKey                 = "nonce"
	NonceAuthorityKey        = "nonce_authority"
	SubmitKey                = "submit"
	OutputKey                = "output"
)

var allKeys = []string{
	LogLevelKey, LogFormatKey, LogSamplerKey,
	ClusterKey, RPCURLKey, CommitmentKey, ConfirmTimeoutSecondsKey,
	ProgramIDKey, AccountSizeKey,
	PrivateKeyKey, LedgerKey, AccountNumberKey, SignerKey,
	NonceAccountKey, NonceKey, NonceAuthorityKey,
	SubmitKey, OutputKey,
}

// FlagName returns the CLI flag bound to a config key.
func FlagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// Resolve layers, lowest precedence first: embedded defaults, <home>/config/msig_config.json,
// MSIG_* environment variables, then flags the operator changed. flags may be nil.
func Resolve(home string, flags *pflag.FlagSet) (*Config, error) {
	vip := viper.New()
	vip.SetConfigType("json")
	if err := vip.ReadConfig(bytes.NewReader(defaultConfigJSON)); err != nil {
		return nil, msigerrors.NewMultisigError(msigerrors.ErrCodeInternal, "failed to read embedded defaults", err)
	}

	if home == "" {
		home = constant.DefaultNodeHome
	}
	data, err := os.ReadFile(filepath.Clean(FilePath(home)))
	switch {
	case err == nil:
		if err := vip.MergeConfig(bytes.NewReader(data)); err != nil {
			return nil, msigerrors.NewMultisigError(msigerrors.ErrCodeConfig, "failed to parse config file", err).
				WithContext("path", FilePath(home))
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, msigerrors.NewMultisigError(msigerrors.ErrCodeConfig, "failed to read config file", err).
			WithContext("path", FilePath(home))
	}

	vip.SetEnvPrefix(constant.EnvPrefix)
	vip.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	vip.AutomaticEnv()

	if flags != nil {
		for _, key := range allKeys {
			if f := flags.Lookup(FlagName(key)); f != nil {
				if err := vip.BindPFlag(key, f); err != nil {
					return nil, msigerrors.NewMultisigError(msigerrors.ErrCodeInternal, "failed to bind flag", err).
						WithContext("flag", f.Name)
				}
			}
		}
	}

	cfg, err := decode(vip)
	if err != nil {
		return nil, err
	}
	cfg.NodeHome = home

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// reader coerces raw viper values with cast so that a malformed env var or
// flag surfaces as a config error instead of a silent zero value.
type reader struct {
	vip *viper.Viper
	err error
}

func (r *reader) fail(key string, err error) {
	if err != nil && r.err == nil {
		r.err = msigerrors.NewMultisigError(msigerrors.ErrCodeConfig, "invalid value for "+key, err).
			WithContext("key", key)
	}
}

func (r *reader) str(key string) string {
	v, err := cast.ToStringE(r.vip.Get(key))
	r.fail(key, err)
	return strings.TrimSpace(v)
}

func (r *reader) int(key string) int {
	v, err := cast.ToIntE(r.vip.Get(key))
	r.fail(key, err)
	return v
}

func (r *reader) uint32(key string) uint32 {
	v, err := cast.ToUint32E(r.vip.Get(key))
	r.fail(key, err)
	return v
}

func (r *reader) uint64(key string) uint64 {
	v, err := cast.ToUint64E(r.vip.Get(key))
	r.fail(key, err)
	return v
}

func (r *reader) bool(key string) bool {
	v, err := cast.ToBoolE(r.vip.Get(key))
	r.fail(key, err)
	return v
}

func decode(vip *viper.Viper) (*Config, error) {
	r := &reader{vip: vip}
	cfg := &Config{
		LogLevel:              r.int(LogLevelKey),
		LogFormat:             r.str(LogFormatKey),
		LogSampler:            r.bool(LogSamplerKey),
		Cluster:               r.str(ClusterKey),
		RPCURL:                r.str(RPCURLKey),
		Commitment:            r.str(CommitmentKey),
		ConfirmTimeoutSeconds: r.int(ConfirmTimeoutSecondsKey),
		ProgramID:             r.str(ProgramIDKey),
		AccountSize:           r.uint64(AccountSizeKey),
		PrivateKey:            r.str(PrivateKeyKey),
		Ledger:                r.bool(LedgerKey),
		AccountNumber:         r.uint32(AccountNumberKey),
		Signer:                r.str(SignerKey),
		NonceAccount:          r.str(NonceAccountKey),
		Nonce:                 r.str(NonceKey),
		NonceAuthority:        r.str(NonceAuthorityKey),
		Submit:                r.bool(SubmitKey),
		Output:                r.str(OutputKey),
	}
	if r.err != nil {
		return nil, r.err
	}
	return cfg, nil
}
