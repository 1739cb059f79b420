package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/scribe/internal/core/domain"
)

var testRunTimeout time.Duration

var testRunCmd = &cobra.Command{
	Use:   "test-run [text]",
	Short: "Post-process sample text with the selected prompt",
	Long: `Run the selected prompt against sample text using the selected provider
and model. The text is read from standard input when not given.

Interrupting the command cancels the run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTestRun,
}

func init() {
	testRunCmd.Flags().DurationVar(&testRunTimeout, "timeout", 0, "give up after this long (0 = no limit)")
	rootCmd.AddCommand(testRunCmd)
}

func runTestRun(cmd *cobra.Command, args []string) error {
	store, err := requireStore(cmd.Context())
	if err != nil {
		return err
	}

	input := ""
	if len(args) == 1 {
		input = args[0]
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		input = strings.TrimSpace(string(data))
	}
	if input == "" {
		return errors.New("nothing to post-process")
	}

	ctx := cmd.Context()
	if testRunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, testRunTimeout)
		defer cancel()
	}

	// The run is detached from ctx; an interrupt cancels it explicitly below.
	token, err := store.BeginTestRun(context.WithoutCancel(ctx), input)
	if err != nil {
		return err
	}

	state, err := store.AwaitTestRun(ctx, token)
	if err != nil {
		store.CancelTestRunToken(token)
		return fmt.Errorf("test run cancelled: %w", err)
	}

	switch {
	case state.Token != token:
		return errors.New("test run was superseded")
	case state.Status == domain.TestRunFailed:
		return fmt.Errorf("test run failed after %s: %w", state.Elapsed, state.Err)
	}

	cmd.Println(state.Output)
	cmd.PrintErrf("%s in %s\n", state.Status.Description(), state.Elapsed)
	return nil
}
