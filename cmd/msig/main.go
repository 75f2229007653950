package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	msigerrors "github.com/pushchain/svm-multisig/multisigClient/errors"
)

func main() {
	// Load environment variables from .env file if available
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode returns 2 for errors the operator can fix by changing input, 1 otherwise.
func exitCode(err error) int {
	switch msigerrors.CodeOf(err) {
	case msigerrors.ErrCodeValidation, msigerrors.ErrCodeConfig, msigerrors.ErrCodeMalformedTransport:
		return 2
	default:
		return 1
	}
}
