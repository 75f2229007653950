package main

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/pushchain/svm-multisig/multisigClient/config"
	msigerrors "github.com/pushchain/svm-multisig/multisigClient/errors"
	"github.com/pushchain/svm-multisig/multisigClient/workflow"
)

// Set at build time with -ldflags "-X main.Version=... -X main.Commit=...".
var (
	Version = "dev"
	Commit  = ""
)

const (
	flagSigners     = "signers"
	flagThreshold   = "threshold"
	flagMultisig    = "multisig"
	flagFrom        = "from"
	flagTo          = "to"
	flagAmount      = "amount"
	flagTransaction = "transaction"
	flagSignatures  = "signatures"
)

func InitRootCmd(rootCmd *cobra.Command) {
	rootCmd.AddCommand(createMultisigCmd())
	rootCmd.AddCommand(createTransactionCmd())
	rootCmd.AddCommand(approveCmd())
	rootCmd.AddCommand(executeTransactionCmd())
	rootCmd.AddCommand(submitCmd())
	rootCmd.AddCommand(signCmd())
	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(showMultisigCmd())
	rootCmd.AddCommand(showTransactionCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())
}

// runWorkflow handles the setup and teardown shared by the four transaction builders.
func runWorkflow(cmd *cobra.Command, fn func(*workflow.Service) (*workflow.Result, error)) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	svc, err := a.service(false)
	if err != nil {
		return err
	}
	result, err := fn(svc)
	// a run that stopped on missing signatures still shows what was built
	if result != nil && (err == nil || len(result.Missing()) > 0) {
		a.printer.Result(result)
	}
	return err
}

func createMultisigCmd() *cobra.Command {
	var (
		signers   []string
		threshold uint64
	)
	cmd := &cobra.Command{
		Use:   "create-multisig",
		Short: "Create a new multisig account",
		RunE: func(cmd *cobra.Command, args []string) error {
			owners := make([]solana.PublicKey, 0, len(signers))
			for _, s := range signers {
				pk, err := requiredKey(flagSigners, strings.TrimSpace(s))
				if err != nil {
					return err
				}
				owners = append(owners, pk)
			}
			return runWorkflow(cmd, func(svc *workflow.Service) (*workflow.Result, error) {
				return svc.CreateMultisig(cmd.Context(), owners, threshold)
			})
		},
	}
	cmd.Flags().StringSliceVar(&signers, flagSigners, nil, "owner public keys")
	cmd.Flags().Uint64Var(&threshold, flagThreshold, 0, "approvals required to execute a transaction")
	_ = cmd.MarkFlagRequired(flagSigners)
	_ = cmd.MarkFlagRequired(flagThreshold)
	return cmd
}

func createTransactionCmd() *cobra.Command {
	var multisig, from, to, amount string
	cmd := &cobra.Command{
		Use:   "create-transaction",
		Short: "Propose a token transfer from an account controlled by the multisig",
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := requiredKey(flagMultisig, multisig)
			if err != nil {
				return err
			}
			src, err := requiredKey(flagFrom, from)
			if err != nil {
				return err
			}
			dst, err := requiredKey(flagTo, to)
			if err != nil {
				return err
			}
			value, err := decimal.NewFromString(strings.TrimSpace(amount))
			if err != nil {
				return msigerrors.NewValidationError("invalid --amount").WithContext("value", amount)
			}
			return runWorkflow(cmd, func(svc *workflow.Service) (*workflow.Result, error) {
				return svc.CreateTransaction(cmd.Context(), ms, src, dst, value)
			})
		},
	}
	cmd.Flags().StringVar(&multisig, flagMultisig, "", "multisig account")
	cmd.Flags().StringVar(&from, flagFrom, "", "source token account, owned by the multisig signer")
	cmd.Flags().StringVar(&to, flagTo, "", "destination token account")
	cmd.Flags().StringVar(&amount, flagAmount, "", "amount in token units, e.g. 1.5")
	for _, f := range []string{flagMultisig, flagFrom, flagTo, flagAmount} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func approveCmd() *cobra.Command {
	var multisig, transaction string
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve a pending transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := requiredKey(flagMultisig, multisig)
			if err != nil {
				return err
			}
			tx, err := requiredKey(flagTransaction, transaction)
			if err != nil {
				return err
			}
			return runWorkflow(cmd, func(svc *workflow.Service) (*workflow.Result, error) {
				return svc.Approve(cmd.Context(), ms, tx)
			})
		},
	}
	cmd.Flags().StringVar(&multisig, flagMultisig, "", "multisig account")
	cmd.Flags().StringVar(&transaction, flagTransaction, "", "pending transaction account")
	_ = cmd.MarkFlagRequired(flagMultisig)
	_ = cmd.MarkFlagRequired(flagTransaction)
	return cmd
}

func executeTransactionCmd() *cobra.Command {
	var multisig, transaction, from, to string
	cmd := &cobra.Command{
		Use:   "execute-transaction",
		Short: "Execute an approved token transfer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := requiredKey(flagMultisig, multisig)
			if err != nil {
				return err
			}
			tx, err := requiredKey(flagTransaction, transaction)
			if err != nil {
				return err
			}
			var src, dst *solana.PublicKey
			if from != "" {
				pk, err := requiredKey(flagFrom, from)
				if err != nil {
					return err
				}
				src = &pk
			}
			if to != "" {
				pk, err := requiredKey(flagTo, to)
				if err != nil {
					return err
				}
				dst = &pk
			}
			return runWorkflow(cmd, func(svc *workflow.Service) (*workflow.Result, error) {
				return svc.ExecuteTransaction(cmd.Context(), ms, tx, src, dst)
			})
		},
	}
	cmd.Flags().StringVar(&multisig, flagMultisig, "", "multisig account")
	cmd.Flags().StringVar(&transaction, flagTransaction, "", "approved transaction account")
	cmd.Flags().StringVar(&from, flagFrom, "", "expected source token account (optional check)")
	cmd.Flags().StringVar(&to, flagTo, "", "expected destination token account (optional check)")
	_ = cmd.MarkFlagRequired(flagMultisig)
	_ = cmd.MarkFlagRequired(flagTransaction)
	return cmd
}

func submitCmd() *cobra.Command {
	var (
		transport  string
		signatures []string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a transaction with all of its signatures",
		Long:  "Signatures must be given in signer order, as listed when the transaction was built.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			svc, err := a.service(false)
			if err != nil {
				return err
			}
			txid, err := svc.Submit(cmd.Context(), transport, signatures)
			if err != nil {
				return err
			}
			a.printer.Submitted(txid)
			return nil
		},
	}
	cmd.Flags().StringVar(&transport, flagTransaction, "", "base64 transaction data")
	cmd.Flags().StringSliceVar(&signatures, flagSignatures, nil, "base58 signatures in signer order")
	_ = cmd.MarkFlagRequired(flagTransaction)
	_ = cmd.MarkFlagRequired(flagSignatures)
	return cmd
}

func signCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign <base64-transaction>",
		Short: "Sign transaction data with the configured key file or Ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			svc, err := a.service(true)
			if err != nil {
				return err
			}
			sig, err := svc.Sign(args[0])
			if err != nil {
				return err
			}
			a.printer.Signature(sig)
			return nil
		},
	}
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <base64-transaction>",
		Short: "Decode transaction data and describe its instructions and signers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			out, err := workflow.Inspect(args[0], a.cfg.Program())
			if err != nil {
				return err
			}
			a.printer.Inspection(out)
			return nil
		},
	}
}

func showMultisigCmd() *cobra.Command {
	var multisig string
	cmd := &cobra.Command{
		Use:   "show-multisig",
		Short: "Show the owners and threshold of a multisig",
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := requiredKey(flagMultisig, multisig)
			if err != nil {
				return err
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			svc, err := a.service(false)
			if err != nil {
				return err
			}
			view, err := svc.ShowMultisig(cmd.Context(), ms)
			if err != nil {
				return err
			}
			a.printer.Multisig(view)
			return nil
		},
	}
	cmd.Flags().StringVar(&multisig, flagMultisig, "", "multisig account")
	_ = cmd.MarkFlagRequired(flagMultisig)
	return cmd
}

func showTransactionCmd() *cobra.Command {
	var transaction string
	cmd := &cobra.Command{
		Use:   "show-transaction",
		Short: "Show a proposed transaction and its approvals",
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := requiredKey(flagTransaction, transaction)
			if err != nil {
				return err
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			svc, err := a.service(false)
			if err != nil {
				return err
			}
			view, err := svc.ShowTransaction(cmd.Context(), tx)
			if err != nil {
				return err
			}
			a.printer.Transaction(view)
			return nil
		},
	}
	cmd.Flags().StringVar(&transaction, flagTransaction, "", "transaction account")
	_ = cmd.MarkFlagRequired(flagTransaction)
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the msig config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the resolved configuration to <home>/config/msig_config.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if err := config.Save(a.cfg.Persistent(), a.cfg.NodeHome); err != nil {
				return err
			}
			a.printer.ConfigWritten(config.FilePath(a.cfg.NodeHome))
			return nil
		},
	})
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print msig version info",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:    %s\n", "msig")
			fmt.Fprintf(out, "Version: %s\n", Version)
			if Commit != "" {
				fmt.Fprintf(out, "Commit:  %s\n", Commit)
			}
		},
	}
}
