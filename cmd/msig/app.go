package main

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pushchain/svm-multisig/multisigClient/chains/svm"
	"github.com/pushchain/svm-multisig/multisigClient/config"
	msigerrors "github.com/pushchain/svm-multisig/multisigClient/errors"
	"github.com/pushchain/svm-multisig/multisigClient/logger"
	"github.com/pushchain/svm-multisig/multisigClient/multisig"
	"github.com/pushchain/svm-multisig/multisigClient/signer"
	"github.com/pushchain/svm-multisig/multisigClient/submit"
	"github.com/pushchain/svm-multisig/multisigClient/workflow"
)

const ledgerPrompt = "Please confirm the transaction on your Ledger device"

// app is the per-invocation wiring shared by every subcommand.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	printer Printer
	signer  signer.Signer
}

func newApp(cmd *cobra.Command) (*app, error) {
	home, _ := cmd.Flags().GetString(flagHome)
	cfg, err := config.Resolve(home, cmd.Flags())
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.LogSampler)
	log.Debug().
		Str("cluster", cfg.Cluster).
		Str("rpc", cfg.Endpoint()).
		Str("program_id", cfg.ProgramID).
		Msg("configuration resolved")
	return &app{
		cfg:     cfg,
		log:     log,
		printer: NewPrinter(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr()),
	}, nil
}

func (a *app) close() {
	if a.signer == nil {
		return
	}
	if err := a.signer.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close signer")
	}
}

func (a *app) hasSigner() bool {
	return a.cfg.Ledger || a.cfg.PrivateKey != ""
}

// loadSigner opens the configured signer. With required false and nothing configured it returns nil.
func (a *app) loadSigner(required bool) (signer.Signer, error) {
	if a.signer != nil {
		return a.signer, nil
	}
	if !required && !a.hasSigner() {
		return nil, nil
	}
	s, err := signer.Load(a.cfg, a.log)
	if err != nil {
		return nil, err
	}
	a.signer = s
	a.log.Info().
		Str("signer", s.PublicKey().String()).
		Bool("interactive", s.IsInteractive()).
		Msg("signer loaded")
	return s, nil
}

func (a *app) rpcClient() (*svm.RPCClient, error) {
	return svm.NewRPCClient(a.cfg.Endpoint(), a.cfg.CommitmentType(), a.log)
}

func (a *app) options() (workflow.Options, error) {
	opts := workflow.Options{Submit: a.cfg.Submit}
	var err error
	if opts.Payer, err = optionalKey(config.SignerKey, a.cfg.Signer); err != nil {
		return opts, err
	}
	if opts.NonceAccount, err = optionalKey(config.NonceAccountKey, a.cfg.NonceAccount); err != nil {
		return opts, err
	}
	if opts.NonceAuthority, err = optionalKey(config.NonceAuthorityKey, a.cfg.NonceAuthority); err != nil {
		return opts, err
	}
	if a.cfg.Nonce != "" {
		h, err := solana.HashFromBase58(a.cfg.Nonce)
		if err != nil {
			return opts, msigerrors.NewValidationError("invalid nonce").WithContext("nonce", a.cfg.Nonce)
		}
		opts.Nonce = &h
	}
	return opts, nil
}

// service wires the RPC client, builder, signer and submitter for one run.
func (a *app) service(signerRequired bool) (*workflow.Service, error) {
	opts, err := a.options()
	if err != nil {
		return nil, err
	}
	s, err := a.loadSigner(signerRequired || opts.Submit)
	if err != nil {
		return nil, err
	}
	rc, err := a.rpcClient()
	if err != nil {
		return nil, err
	}
	builder := multisig.NewBuilder(rc, a.cfg.Program(), a.cfg.AccountSize, a.log)
	submitter := submit.NewService(rc, time.Duration(a.cfg.ConfirmTimeoutSeconds)*time.Second, a.log)
	svc := workflow.NewService(rc, builder, s, submitter, opts, a.log).
		WithConfirmPrompt(func(key solana.PublicKey) {
			a.printer.Prompt(ledgerPrompt, key.String())
		})
	return svc, nil
}

func optionalKey(name, value string) (solana.PublicKey, error) {
	if value == "" {
		return solana.PublicKey{}, nil
	}
	pk, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, msigerrors.NewValidationError("invalid "+config.FlagName(name)).
			WithContext("value", value)
	}
	return pk, nil
}

func requiredKey(name, value string) (solana.PublicKey, error) {
	if value == "" {
		return solana.PublicKey{}, msigerrors.NewValidationError("--" + name + " is required")
	}
	pk, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, msigerrors.NewValidationError("invalid --"+name).WithContext("value", value)
	}
	return pk, nil
}
