package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/raido/internal"
	pkgconfig "github.com/starford/raido/pkg/config"
)

var version = "dev"

const defaultConfigPath = "config/config.yaml"

var errInvalidDiagram = errors.New("diagram is invalid")

// loadConfig reads the config file named by --config. The default path may
// be absent, in which case built-in defaults apply.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if configPath == defaultConfigPath {
		if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		return cfg, nil
	}
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// stdout carries the MCP protocol.
	return internal.RunMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
		internal.WithVersion(version),
	)
}

func fileArg(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", fmt.Errorf("%s: expected exactly one file argument", cmd.Name)
	}
	return cmd.Args().First(), nil
}

func compile(_ context.Context, cmd *cli.Command) error {
	path, err := fileArg(cmd)
	if err != nil {
		return err
	}
	return internal.CompileFile(os.Stdout, path)
}

func validate(_ context.Context, cmd *cli.Command) error {
	path, err := fileArg(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	strict := cfg.Editor.StrictReferences
	if cmd.IsSet("lenient") {
		strict = !cmd.Bool("lenient")
	}
	ok, err := internal.ValidateFile(os.Stdout, path, strict)
	if err != nil {
		return err
	}
	if !ok {
		return errInvalidDiagram
	}
	return nil
}

func replay(_ context.Context, cmd *cli.Command) error {
	path, err := fileArg(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Replay(os.Stdout, path, cfg.Editor)
}

func main() {
	cmd := &cli.Command{
		Name:    "raido",
		Usage:   "Collaborative whiteboard with a diagram-as-code compiler",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: defaultConfigPath,
				Value:       defaultConfigPath,
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools on stdin/stdout",
				Action: serveMCP,
			},
			{
				Name:      "compile",
				Usage:     "Compile a diagram file and print its elements as JSON",
				ArgsUsage: "<file>",
				Action:    compile,
			},
			{
				Name:      "validate",
				Usage:     "Check a diagram file and print every error found",
				ArgsUsage: "<file>",
				Action:    validate,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "lenient",
						Usage: "Accept connection targets that are never declared",
					},
				},
			},
			{
				Name:      "replay",
				Usage:     "Run a gesture script against an empty board and print the result",
				ArgsUsage: "<script>",
				Action:    replay,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, errInvalidDiagram) {
			os.Exit(2)
		}
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
