package cmd

// Exit codes for the apiprobe CLI
const (
	// ExitSuccess indicates all scenarios passed
	ExitSuccess = 0

	// ExitScenarioFailure indicates one or more scenarios failed
	ExitScenarioFailure = 1

	// ExitParseError indicates a scenario file error
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
