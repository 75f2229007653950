package main

import (
	"github.com/spf13/cobra"

	"github.com/pushchain/svm-multisig/multisigClient/config"
	"github.com/pushchain/svm-multisig/multisigClient/constant"
)

const flagHome = "home"

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "msig",
		Short: "Offline multisig client for SPL token transfers",
		Long: `msig builds durable-nonce transactions for the multisig program, collects
signatures from key files or a Ledger device, and submits the signed result.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addPersistentFlags(rootCmd)
	InitRootCmd(rootCmd)

	return rootCmd
}

// addPersistentFlags registers one flag per config key. Only flags the operator
// changes override the config file and MSIG_* environment.
func addPersistentFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String(flagHome, constant.DefaultNodeHome, "directory holding config/msig_config.json")

	f.String(config.FlagName(config.ClusterKey), config.ClusterDevnet, "devnet | testnet | mainnet-beta | localnet")
	f.String(config.FlagName(config.RPCURLKey), "", "RPC endpoint, overrides --cluster")
	f.String(config.FlagName(config.CommitmentKey), "confirmed", "processed | confirmed | finalized")
	f.Int(config.FlagName(config.ConfirmTimeoutSecondsKey), 60, "seconds to wait for confirmation after submitting")
	f.String(config.FlagName(config.ProgramIDKey), constant.DefaultMultisigProgramID, "multisig program id")
	f.Uint64(config.FlagName(config.AccountSizeKey), constant.DefaultAccountSize, "space allocated for multisig and transaction accounts")

	f.StringP(config.FlagName(config.PrivateKeyKey), "k", "", "key file (solana-keygen JSON array or base58 secret key)")
	f.Bool(config.FlagName(config.LedgerKey), false, "sign with a Ledger device running the Solana app")
	f.Uint32P(config.FlagName(config.AccountNumberKey), "n", 0, "Ledger account number, derives m/44'/501'/<n>'")
	f.String(config.FlagName(config.SignerKey), "", "payer public key, for building without key material")

	f.String(config.FlagName(config.NonceAccountKey), "", "durable nonce account")
	f.String(config.FlagName(config.NonceKey), "", "current nonce value, skips reading the nonce account")
	f.String(config.FlagName(config.NonceAuthorityKey), "", "nonce authority (default: the payer)")

	f.Bool(config.FlagName(config.SubmitKey), false, "sign with the configured signer and submit when all signatures are present")
	f.StringP(config.FlagName(config.OutputKey), "o", config.OutputText, "text | json")
	f.Int(config.FlagName(config.LogLevelKey), 1, "0 debug, 1 info, 2 warn, 3 error, 4 fatal, 5 panic")
	f.String(config.FlagName(config.LogFormatKey), "console", "console | json")
	f.Bool(config.FlagName(config.LogSamplerKey), false, "sample log output")
}
