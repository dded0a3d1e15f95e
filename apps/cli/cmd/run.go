package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/apiprobe/apiprobe/packages/config"
	"github.com/apiprobe/apiprobe/packages/history"
	"github.com/apiprobe/apiprobe/packages/http"
	"github.com/apiprobe/apiprobe/packages/output"
	"github.com/apiprobe/apiprobe/packages/retry"
	"github.com/apiprobe/apiprobe/packages/runner"
	"github.com/apiprobe/apiprobe/packages/scenario"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <scenarios.yaml>",
	Short: "Run API scenarios from a YAML or JSON file",
	Long: `Run the scenarios defined in a YAML or JSON file against an API.

Examples:
  apiprobe run scenarios.yaml --base-url https://api.example.com
  apiprobe run scenarios.json --parallelism 4 --max-attempts 3
  apiprobe run scenarios.yaml -o json --output-file report.json
  apiprobe run scenarios.yaml --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	baseURLFlag     string
	timeoutFlag     string
	maxAttemptsFlag int
	retryDelayFlag  string
	parallelismFlag int
	rateFlag        float64
	runTimeoutFlag  string
	headerFlags     []string
	outputFlag      string
	outputFileFlag  string
	configFlag      string
	historyDBFlag   string
	noColorFlag     bool
	verboseFlag     bool
	watchFlag       bool
	insecureFlag    bool
	proxyFlag       string
)

func init() {
	runCmd.Flags().StringVarP(&baseURLFlag, "base-url", "u", getEnvString("APIPROBE_BASE_URL", ""), "Target API root (env: APIPROBE_BASE_URL)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("APIPROBE_TIMEOUT", ""), "Per-call timeout (e.g., 30s, 500ms) (env: APIPROBE_TIMEOUT)")
	runCmd.Flags().IntVar(&maxAttemptsFlag, "max-attempts", getEnvInt("APIPROBE_MAX_ATTEMPTS", 0), "Retry attempt budget per call, first try included (env: APIPROBE_MAX_ATTEMPTS)")
	runCmd.Flags().StringVar(&retryDelayFlag, "retry-delay", "", "Backoff unit between retries (e.g., 1s)")
	runCmd.Flags().IntVarP(&parallelismFlag, "parallelism", "p", getEnvInt("APIPROBE_PARALLELISM", 0), "Concurrent scenario limit (env: APIPROBE_PARALLELISM)")
	runCmd.Flags().Float64VarP(&rateFlag, "rate", "r", 0, "Scenario starts per second (0 = unlimited)")
	runCmd.Flags().StringVar(&runTimeoutFlag, "run-timeout", "", "Overall run timeout (e.g., 2m)")
	runCmd.Flags().StringArrayVarP(&headerFlags, "header", "H", nil, "Default request header as 'Name: value' (repeatable)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("APIPROBE_OUTPUT", "console"), "Output format: console, json, junit, tap (env: APIPROBE_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("APIPROBE_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: APIPROBE_OUTPUT_FILE)")
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("APIPROBE_CONFIG", ""), "Path to config file (env: APIPROBE_CONFIG)")
	runCmd.Flags().StringVar(&historyDBFlag, "history-db", getEnvString("APIPROBE_HISTORY_DB", ""), "SQLite file to record run history (env: APIPROBE_HISTORY_DB)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("APIPROBE_NO_COLOR", false), "Disable colored output (env: APIPROBE_NO_COLOR)")
	runCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch the scenario file and re-run on change")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("APIPROBE_INSECURE", false), "Disable SSL certificate validation (env: APIPROBE_INSECURE)")
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("APIPROBE_PROXY", ""), "Proxy URL for HTTP requests (env: APIPROBE_PROXY)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func runCommand(cmd *cobra.Command, args []string) error {
	scenarioFile := args[0]

	cfg, err := buildRunConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitConfigError)
	}

	if cfg.BaseURL == "" {
		fmt.Fprintln(os.Stderr, "Error: a base URL is required (--base-url, APIPROBE_BASE_URL, or config file)")
		os.Exit(ExitConfigError)
	}

	// Flag and env win over the config file's reporters list
	format := outputFlag
	if !cmd.Flags().Changed("output") && os.Getenv("APIPROBE_OUTPUT") == "" && len(cfg.Reporters) > 0 {
		format = cfg.Reporters[0]
	}

	outFile := outputFileFlag
	if outFile == "" && cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		outFile = filepath.Join(cfg.OutputDir, "report."+reportExt(format))
	}

	formatter, closeOut, err := buildFormatter(format, outFile)
	if err != nil {
		return err
	}
	defer closeOut()

	runOnce := func() (*runner.Report, error) {
		scenarios, err := scenario.Load(scenarioFile)
		if err != nil {
			return nil, err
		}

		// The client owns the connection pool for the whole run and is
		// released on every exit path.
		client := http.NewClient(
			http.WithBaseURL(cfg.BaseURL),
			http.WithTimeout(time.Duration(cfg.Timeout)*time.Millisecond),
			http.WithDefaultHeaders(cfg.Headers),
			http.WithValidateSSL(cfg.GetValidateSSL()),
			http.WithProxy(cfg.Proxy),
		)
		defer client.Close()

		policy := retry.NewPolicy(
			retry.WithMaxAttempts(cfg.MaxAttempts),
			retry.WithBaseDelay(time.Duration(cfg.RetryDelay)*time.Millisecond),
		)

		r := runner.NewRunner(&runner.Config{
			Parallelism: cfg.Parallelism,
			Timeout:     time.Duration(cfg.RunTimeout) * time.Millisecond,
			Rate:        cfg.Rate,
		})

		exec := runner.HTTPExecutor(client, policy,
			runner.WithSchemaDir(filepath.Dir(scenarioFile)))

		return r.Run(cmd.Context(), scenarios, exec), nil
	}

	report, err := runOnce()
	if err != nil {
		formatter.FormatError(err)
		os.Exit(ExitParseError)
	}

	if err := formatter.FormatReport(report); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if cfg.HistoryDB != "" {
		if err := recordHistory(cfg.HistoryDB, report); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}

	if !watchFlag {
		if !report.Success() {
			os.Exit(ExitScenarioFailure)
		}
		return nil
	}

	return watchAndRerun(cmd, scenarioFile, formatter, runOnce)
}

func buildRunConfig() (*config.Config, error) {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	overrides := &config.Config{
		BaseURL:     baseURLFlag,
		MaxAttempts: maxAttemptsFlag,
		Parallelism: parallelismFlag,
		Rate:        rateFlag,
		HistoryDB:   historyDBFlag,
		Proxy:       proxyFlag,
	}

	if timeoutFlag != "" {
		d, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w (use format like 30s, 500ms)", timeoutFlag, err)
		}
		overrides.Timeout = int(d.Milliseconds())
	}
	if retryDelayFlag != "" {
		d, err := time.ParseDuration(retryDelayFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid retry delay %q: %w", retryDelayFlag, err)
		}
		overrides.RetryDelay = int(d.Milliseconds())
	}
	if runTimeoutFlag != "" {
		d, err := time.ParseDuration(runTimeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid run timeout %q: %w", runTimeoutFlag, err)
		}
		overrides.RunTimeout = int(d.Milliseconds())
	}

	if len(headerFlags) > 0 {
		overrides.Headers = make(map[string]string, len(headerFlags))
		for _, h := range headerFlags {
			name, value, ok := strings.Cut(h, ":")
			if !ok {
				return nil, fmt.Errorf("invalid header %q: expected 'Name: value'", h)
			}
			overrides.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}
	}

	if insecureFlag {
		f := false
		overrides.ValidateSSL = &f
	}

	return fileConfig.Merge(overrides), nil
}

// reportExt maps an output format to the file extension used when the
// report lands in the configured output directory.
func reportExt(format string) string {
	switch strings.ToLower(format) {
	case "json":
		return "json"
	case "junit":
		return "xml"
	case "tap":
		return "tap"
	default:
		return "txt"
	}
}

func buildFormatter(format, outFile string) (output.Formatter, func(), error) {
	closeOut := func() {}
	var outWriter *os.File
	if outFile != "" {
		var err error
		outWriter, err = os.Create(outFile)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot create output file: %w", err)
		}
		closeOut = func() { _ = outWriter.Close() }
	}

	var formatter output.Formatter
	switch strings.ToLower(format) {
	case "json":
		opts := []output.JSONOption{}
		if outWriter != nil {
			opts = append(opts, output.JSONWithWriter(outWriter))
		}
		formatter = output.NewJSONFormatter(opts...)
	case "junit":
		opts := []output.JUnitOption{}
		if outWriter != nil {
			opts = append(opts, output.JUnitWithWriter(outWriter))
		}
		formatter = output.NewJUnitFormatter(opts...)
	case "tap":
		opts := []output.TAPOption{}
		if outWriter != nil {
			opts = append(opts, output.TAPWithWriter(outWriter))
		}
		formatter = output.NewTAPFormatter(opts...)
	default: // "console"
		consoleOpts := []output.ConsoleOption{
			output.WithVerbose(verboseFlag),
			output.WithNoColor(noColorFlag),
		}
		if outWriter != nil {
			consoleOpts = append(consoleOpts, output.WithWriter(outWriter))
		}
		formatter = output.NewConsoleFormatter(consoleOpts...)
	}

	return formatter, closeOut, nil
}

func recordHistory(path string, report *runner.Report) error {
	store, err := history.Open(path)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.Record(ctx, report); err != nil {
		return fmt.Errorf("recording history: %w", err)
	}
	return nil
}

func watchAndRerun(cmd *cobra.Command, scenarioFile string, formatter output.Formatter, runOnce func() (*runner.Report, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(scenarioFile)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", scenarioFile, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	var debounceTimer *time.Timer

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Write) && scenario.IsScenarioFile(event.Name) {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "\nFile changed: %s\nRe-running scenarios...\n", event.Name)

					report, err := runOnce()
					if err != nil {
						formatter.FormatError(err)
						return
					}
					if err := formatter.FormatReport(report); err != nil {
						formatter.FormatError(err)
					}

					fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			formatter.FormatError(fmt.Errorf("watcher error: %w", err))

		case <-cmd.Context().Done():
			return nil
		}
	}
}
