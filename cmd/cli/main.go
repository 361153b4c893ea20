package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/goccy/go-json"

	"github.com/vk/blueprintgo/internal/cli"
	"github.com/vk/blueprintgo/internal/ctxlog"
	"github.com/vk/blueprintgo/internal/loader"
	"github.com/vk/blueprintgo/internal/parser"
	"github.com/vk/blueprintgo/internal/template"
)

// main is the entrypoint for the blueprintgo application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW io.Writer, args []string) error {
	config, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	logger := cli.NewLogger(os.Stderr, config)
	slog.SetDefault(logger)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	raw, err := loader.Load(config.BlueprintPath)
	if err != nil {
		return err
	}

	inputs := map[string]any{
		"validate_version": config.ValidateVersion,
		"resource_base":    config.ResourceBase,
	}
	if config.InputsPath != "" {
		loaded, err := loader.Load(config.InputsPath)
		if err != nil {
			return err
		}
		if mapping, ok := loaded.(map[string]any); ok {
			for name, value := range mapping {
				inputs[name] = value
			}
		}
	}

	parsed, err := parser.Parse(ctx, raw, template.Blueprint, "blueprint", inputs, config.Strict)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(outW)
	encoder.SetIndent("", "  ")
	return encoder.Encode(parsed)
}
