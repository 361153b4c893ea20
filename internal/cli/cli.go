package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Config is the fully validated CLI configuration.
type Config struct {
	BlueprintPath string
	InputsPath    string
	ResourceBase  string
	LogFormat     string
	LogLevel      string
	Strict        bool
	// ValidateVersion gates version-dependent features against the declared
	// definitions version.
	ValidateVersion bool
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("blueprintgo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
BlueprintGo - A blueprint DSL parser and validator.

Usage:
  blueprintgo [options] [BLUEPRINT_PATH]

Arguments:
  BLUEPRINT_PATH
    Path to a blueprint file (.yaml, .json or .hcl), or a directory
    containing exactly one.

Options:
`)
		flagSet.PrintDefaults()
	}

	blueprintFlag := flagSet.String("blueprint", "", "Path to the blueprint file.")
	bFlag := flagSet.String("b", "", "Path to the blueprint file (shorthand).")
	inputsFlag := flagSet.String("inputs", "", "Path to a file with input values.")
	resourceBaseFlag := flagSet.String("resource-base", "", "Directory resolved against for script mappings.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	nonStrictFlag := flagSet.Bool("non-strict", false, "Accept mapping keys absent from the schema.")
	skipVersionFlag := flagSet.Bool("skip-version-validation", false, "Do not gate features on the declared definitions version.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *blueprintFlag != "" {
		path = *blueprintFlag
	} else if *bFlag != "" {
		path = *bFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Blueprint path determined.", "path", path)

	if path == "" {
		slog.Debug("No blueprint path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config := &Config{
		BlueprintPath:   path,
		InputsPath:      *inputsFlag,
		ResourceBase:    *resourceBaseFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		Strict:          !*nonStrictFlag,
		ValidateVersion: !*skipVersionFlag,
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// NewLogger builds the process logger from the validated configuration.
func NewLogger(output io.Writer, config *Config) *slog.Logger {
	var level slog.Level
	switch config.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	options := &slog.HandlerOptions{Level: level}
	if config.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(output, options))
	}
	return slog.New(slog.NewJSONHandler(output, options))
}
