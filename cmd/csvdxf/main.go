// Command csvdxf converts tabular point data into DXF drawings. Column roles
// are proposed by a local model and confirmed by the user before any
// geometry is written.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/csvdxf/internal/core"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// printError shows the mapped message with its support code, followed by
// the technical detail.
func printError(err error) {
	var usage *usageError
	if errors.As(err, &usage) || !core.IsUserFacing(err) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return
	}
	fmt.Fprintln(os.Stderr, "Error:", core.FormatUserError(err))
	fmt.Fprintln(os.Stderr, "  detail:", err)
}

// usageError marks mistakes in the command line itself.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }
