package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/manthysbr/jobpilot/internal/config"
	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/manthysbr/jobpilot/internal/core/services"
	"github.com/spf13/cobra"
)

type runOptions struct {
	description string
	options     []string
	output      string
	maxAttempts int
	interval    time.Duration
	policy      string
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run ARTIFACT [ARTIFACT...]",
		Short: "Upload artifacts, wait for their analysis and save the results",
		Example: `  jobpilot run ./resume.pdf -d "Looking for a Go developer..."
  jobpilot run a.pdf b.pdf --option detail_level=brief --max-attempts 60`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArtifacts(cmd, root, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.description, "description", "d", "", "Job description sent with the analysis (defaults to run.job_description)")
	cmd.Flags().StringArrayVar(&opts.options, "option", nil, "Analysis option as key=value (repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Result file (defaults to run.output)")
	cmd.Flags().IntVar(&opts.maxAttempts, "max-attempts", 0, "Maximum status queries per run")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "Wait between status queries")
	cmd.Flags().StringVar(&opts.policy, "policy", "", "Wait policy: fixed or exponential")
	return cmd
}

func runArtifacts(cmd *cobra.Command, root *rootOptions, opts *runOptions, artifacts []string) error {
	ctx := cmd.Context()
	cfg, logger, err := loadConfig(root)
	if err != nil {
		return err
	}

	poll := cfg.Poll
	if cmd.Flags().Changed("max-attempts") {
		poll.MaxAttempts = opts.maxAttempts
	}
	if cmd.Flags().Changed("interval") {
		poll.Interval = opts.interval
	}
	if opts.policy != "" {
		poll.Policy = opts.policy
	}
	if err := poll.Validate(); err != nil {
		return err
	}

	params := cfg.Run.JobParameters(opts.description)
	if err := applyOptions(params, opts.options); err != nil {
		return err
	}

	a, err := newApp(root, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	creds, err := a.creds.Credentials(ctx)
	if err != nil {
		return err
	}
	logger.Debug("credentials loaded", "api_key", config.MaskSecret(creds.Key))

	out := cmd.OutOrStdout()
	stopProgress := printProgress(ctx, out, a.events)

	reqs := make([]services.RunRequest, len(artifacts))
	for i, art := range artifacts {
		reqs[i] = services.RunRequest{Artifact: art, Params: params, Poll: poll}
	}
	batch := services.NewBatchRunner(logger, a.orch, services.BatchConfig{MaxConcurrentRuns: cfg.Run.MaxConcurrent})
	results := batch.RunAll(ctx, creds, reqs)
	stopProgress()

	output := opts.output
	if output == "" {
		output = cfg.Run.Output
	}

	failed := 0
	for i, res := range results {
		if res.Outcome != domain.OutcomeSuccess {
			failed++
			fmt.Fprintf(out, "\n%s: %s (%s)\n", artifacts[i], res.Outcome, res.Reason)
			continue
		}
		path := outputPath(output, artifacts[i], len(artifacts) > 1)
		if err := writeResult(path, res.Payload); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s: results saved to %s\n", artifacts[i], path)
		printSummary(out, res.Payload)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d runs did not succeed", failed, len(results))
	}
	return nil
}

// printProgress prints run events until the returned stop func is called.
func printProgress(ctx context.Context, w io.Writer, bus *services.EventBus) func() {
	ch, unsub := bus.Subscribe(services.AllRuns)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				fmt.Fprintln(w, formatEvent(evt))
			}
		}
	}()

	return func() {
		unsub()
		<-done
	}
}

func formatEvent(evt services.Event) string {
	prefix := string(evt.RunID)
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("[%s] %s", prefix, evt.Message)
}
