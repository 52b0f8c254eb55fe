package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/petasbytes/calagent/agent"
	"github.com/petasbytes/calagent/internal/metrics"
	"github.com/petasbytes/calagent/internal/provider"
	"github.com/petasbytes/calagent/internal/runner"
	"github.com/petasbytes/calagent/internal/store"
	"github.com/petasbytes/calagent/internal/windowing"
	"github.com/petasbytes/calagent/memory"
	"github.com/petasbytes/calagent/tools"
)

func chatCmd() *cobra.Command {
	var sessionID, metricsAddr string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat (Ctrl-C to quit)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Ctrl-C / SIGTERM cancel the in-flight request and end the loop.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if cmd.Flags().Changed("metrics-addr") {
				a.cfg.MetricsAddr = metricsAddr
			}
			if a.cfg.MetricsAddr != "" {
				srv, err := metrics.Serve(a.cfg.MetricsAddr)
				if err != nil {
					return fmt.Errorf("metrics: %w", err)
				}
				defer func() {
					sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
					defer cancel()
					_ = srv.Shutdown(sctx)
				}()
			}
			return runChat(ctx, cmd, a, sessionID)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "resume an existing session by id")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics at http://<addr>/metrics (overrides metrics_addr)")
	return cmd
}

func runChat(ctx context.Context, cmd *cobra.Command, a *app, sessionID string) error {
	cfg := a.cfg
	if cfg.APIKey == "" {
		return errors.New("missing ANTHROPIC_API_KEY; export it before running")
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	sess, prior, err := openSession(ctx, a.store, cfg.UserID, sessionID)
	if err != nil {
		return err
	}
	logger := log.WithField("session_id", sess.ID)

	r := runner.New(provider.NewAnthropicClient(provider.Options{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL}), tools.Registry(a.calendar))
	r.MaxTokens = cfg.MaxTokens
	r.Budget = cfg.TokenBudget
	r.MaxSteps = cfg.MaxSteps
	r.System = func() string { return runner.SystemPrompt(time.Now(), loc) }
	if cfg.TokenCounter == "tiktoken" {
		tc, err := windowing.NewTokenizerCounter()
		if err != nil {
			return fmt.Errorf("load tokenizer: %w", err)
		}
		r.Counter = tc
	}

	ag := agent.New(
		agent.WithHistory(prior),
		agent.WithResponder(agent.NewLLMResponder(r, anthropic.Model(cfg.Model))),
		agent.WithInputValidation(cfg.MaxInputRunes),
		agent.WithLogger(logger),
		agent.WithTurnHook(func(ctx context.Context, t memory.Turn) error {
			// Persist even when the turn's context was cancelled.
			return a.store.AppendTurn(context.WithoutCancel(ctx), sess.ID, t)
		}),
	)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Chat with Claude about your calendar (session %s, Ctrl-C to quit)\n", sess.ID)

	inputCh, readErr := readLines(ctx, cmd.InOrStdin())

outer:
	for {
		fmt.Fprint(out, "\u001b[94mYou\u001b[0m: ")
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nExiting...")
			break outer
		case line, ok = <-inputCh:
			if !ok {
				break outer
			}
		}

		reply, err := ag.ProcessMessage(ctx, line)
		switch {
		case errors.Is(err, agent.ErrEmptyInput):
			continue
		case errors.Is(err, agent.ErrInputTooLong):
			fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
			continue
		case err != nil:
			logger.WithError(err).Warn("turn failed")
		}
		if reply != "" {
			fmt.Fprintf(out, "\u001b[93mClaude\u001b[0m: %s\n", reply)
		}
		if err := memory.SaveHistory(cfg.HistoryPath, ag.History()); err != nil {
			logger.WithError(err).Warn("failed to save transcript")
		}
	}
	select {
	case err := <-readErr:
		if err != nil {
			logger.WithError(err).Warn("stdin read error")
		}
	default:
		// Reader still blocked after cancellation; nothing to report.
	}
	return nil
}

// readLines scans r on its own goroutine. lines is closed when input ends;
// by then the scan error, if any, is already buffered on errc. Only that
// goroutine touches the scanner.
func readLines(ctx context.Context, r io.Reader) (lines <-chan string, errc <-chan error) {
	out := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case out <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errCh <- scanner.Err()
	}()
	return out, errCh
}

// openSession resumes id or creates a new session for userID.
func openSession(ctx context.Context, st *store.Store, userID, id string) (store.Session, []memory.Turn, error) {
	if id == "" {
		sess, err := st.CreateSession(ctx, userID, "Chat "+time.Now().Format("2006-01-02 15:04"))
		return sess, nil, err
	}
	sess, err := st.GetSession(ctx, id)
	if err != nil {
		return store.Session{}, nil, fmt.Errorf("resume session %s: %w", id, err)
	}
	turns, err := st.Turns(ctx, id)
	if err != nil {
		return store.Session{}, nil, err
	}
	return sess, turns, nil
}
