// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/procdoc-lab/cua-cli/api/schemas"
	"github.com/procdoc-lab/cua-cli/internal/agent"
	"github.com/procdoc-lab/cua-cli/internal/docs"
	"github.com/procdoc-lab/cua-cli/internal/model"
	"github.com/procdoc-lab/cua-cli/internal/observability"
	"github.com/procdoc-lab/cua-cli/internal/screen"
)

// Process exit codes reported to the calling harness.
const (
	exitCompleted        = 0
	exitMaxStepsExceeded = 2
	exitFailed           = 3
)

// runOptions holds the file-path flags of the run command. Credentials are
// always file-referenced: the API key and database password never appear in
// argv, config files, or logs.
type runOptions struct {
	promptFile     string
	apiKeyFile     string
	textFile       string
	graphFile      string
	dbPasswordFile string
}

// validate enforces the flag contract before anything expensive starts.
func (o *runOptions) validate() error {
	if o.promptFile == "" {
		return fmt.Errorf("--prompt-file is required")
	}
	if o.apiKeyFile == "" {
		return fmt.Errorf("--api-key-file is required")
	}
	if o.textFile != "" && o.graphFile != "" {
		return fmt.Errorf("--text-file and --graph-file are mutually exclusive")
	}
	if o.graphFile != "" && o.dbPasswordFile == "" {
		return fmt.Errorf("--graph-file requires --db-password-file")
	}
	return nil
}

// expand resolves ~ in every path flag.
func (o *runOptions) expand() error {
	for _, p := range []*string{&o.promptFile, &o.apiKeyFile, &o.textFile, &o.graphFile, &o.dbPasswordFile} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Runs one agent task against a live browser target",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their viper keys so the command line overrides
			// config-file and environment values with the right precedence.
			if err := viper.BindPFlag("run.max_steps", cmd.Flags().Lookup("max-steps")); err != nil {
				return err
			}
			if err := viper.BindPFlag("model.max_tokens", cmd.Flags().Lookup("token-budget")); err != nil {
				return err
			}
			if err := viper.BindPFlag("screen.output_dir", cmd.Flags().Lookup("output-dir")); err != nil {
				return err
			}
			if err := viper.BindPFlag("run.steps_file", cmd.Flags().Lookup("steps-file")); err != nil {
				return err
			}
			if err := viper.BindPFlag("graph.scope", cmd.Flags().Lookup("graph-scope")); err != nil {
				return err
			}
			if err := viper.BindPFlag("screen.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			return viper.BindPFlag("screen.start_url", cmd.Flags().Lookup("start-url"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.Unmarshal(cfg); err != nil {
				return fmt.Errorf("failed to re-unmarshal config with flag overrides: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := opts.validate(); err != nil {
				return err
			}
			if err := opts.expand(); err != nil {
				return err
			}
			return runAgent(cmd.Context(), opts)
		},
	}

	flags := runCmd.Flags()
	flags.StringVarP(&opts.promptFile, "prompt-file", "p", "", "file containing the task prompt (required)")
	flags.StringVar(&opts.apiKeyFile, "api-key-file", "", "file containing the model API key (required)")
	flags.StringVarP(&opts.textFile, "text-file", "t", "", "file with free-text process documentation")
	flags.StringVarP(&opts.graphFile, "graph-file", "g", "", "YAML step file to import into the process graph")
	flags.StringVar(&opts.dbPasswordFile, "db-password-file", "", "file containing the graph database password")
	flags.Int("max-steps", 0, "maximum model-decision cycles before aborting")
	flags.Int("token-budget", 0, "maximum output tokens per model response")
	flags.String("output-dir", "", "directory receiving one PNG per screenshot")
	flags.String("steps-file", "", "file receiving the executed action count")
	flags.String("graph-scope", "", "graph retrieval scope: full or match")
	flags.Bool("headless", false, "run the browser target headless")
	flags.String("start-url", "", "page the browser opens before the first turn")

	return runCmd
}

// runAgent wires the components for one run and maps the outcome onto the
// process exit code. Setup failures past flag validation (unreadable files,
// unreachable graph, broken browser target) are run failures too: the run
// was requested and could not be carried out.
func runAgent(ctx context.Context, opts *runOptions) (retErr error) {
	defer func() {
		if retErr != nil {
			exitCode = exitFailed
		}
	}()

	logger := observability.GetLogger()
	runID := uuid.New().String()

	task, err := docs.LoadTaskFile(opts.promptFile)
	if err != nil {
		return err
	}
	apiKey, err := docs.LoadCredentialFile(opts.apiKeyFile)
	if err != nil {
		return err
	}

	source, navigator, closeSource, err := buildSource(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	backend, err := screen.NewCDPBackend(ctx, cfg.Screen, logger)
	if err != nil {
		return fmt.Errorf("start browser target: %w", err)
	}
	defer backend.Close(ctx)

	executor := screen.NewExecutor(backend, cfg.Screen, logger)
	client := model.NewClient(cfg.Model, apiKey, []string{model.BetaComputerUse}, logger)
	driver := agent.NewDriver(client, executor, source, navigator, cfg.Run.MaxSteps, logger)

	logger.Info("Starting agent run",
		zap.String("run_id", runID),
		zap.String("documentation_mode", string(source.Mode())),
		zap.Int("max_steps", cfg.Run.MaxSteps),
	)

	result := driver.Run(ctx, task)
	writeStepsArtifact(cfg.Run.StepsFile, result, logger)

	switch result.Status {
	case schemas.RunCompleted:
		logger.Info("Run completed.",
			zap.String("run_id", runID),
			zap.Int("turns", result.Turns),
			zap.Int("computer_actions", result.ComputerActions),
		)
		exitCode = exitCompleted
	case schemas.RunMaxStepsExceeded:
		logger.Warn("Run hit the step limit.",
			zap.String("run_id", runID),
			zap.Int("turns", result.Turns),
		)
		exitCode = exitMaxStepsExceeded
	default:
		logger.Error("Run failed.",
			zap.String("run_id", runID),
			zap.Int("turns", result.Turns),
			zap.String("reason", result.Reason),
		)
		exitCode = exitFailed
	}
	return nil
}

// buildSource selects the documentation source for the run: none, free text,
// or the process graph seeded from the given YAML file.
func buildSource(ctx context.Context, opts *runOptions, logger *zap.Logger) (docs.Source, schemas.StepNavigator, func(), error) {
	noop := func() {}

	switch {
	case opts.textFile != "":
		src, err := docs.NewTextSource(opts.textFile)
		if err != nil {
			return nil, nil, noop, err
		}
		return src, nil, noop, nil

	case opts.graphFile != "":
		password, err := docs.LoadCredentialFile(opts.dbPasswordFile)
		if err != nil {
			return nil, nil, noop, err
		}
		src, err := docs.NewGraphSource(ctx, cfg.Graph, password, logger)
		if err != nil {
			return nil, nil, noop, err
		}
		closeFn := func() {
			if cerr := src.Close(context.Background()); cerr != nil {
				logger.Warn("Closing the graph connection failed.", zap.Error(cerr))
			}
		}
		if err := src.ImportSteps(ctx, opts.graphFile); err != nil {
			closeFn()
			return nil, nil, noop, err
		}
		return src, src, closeFn, nil

	default:
		return docs.NoneSource{}, nil, noop, nil
	}
}

// writeStepsArtifact records the executed action count next to the run, one
// integer per file.
func writeStepsArtifact(path string, result *schemas.RunResult, logger *zap.Logger) {
	if path == "" {
		return
	}
	data := []byte(strconv.Itoa(result.ComputerActions) + "\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Warn("Could not write steps artifact.", zap.String("path", path), zap.Error(err))
	}
}
