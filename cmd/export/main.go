package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robalyx/warden/internal/export"
	"github.com/robalyx/warden/internal/setup"
	"github.com/robalyx/warden/internal/setup/telemetry"
	"github.com/urfave/cli/v3"
)

const (
	// ExportLogDir specifies where export log files are stored.
	ExportLogDir = "logs/export_logs"

	dateLayout = "2006-01-02"
)

var ErrInvalidRange = errors.New("end date must be after start date")

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "export",
		Usage: "Export cases, case history and the audit log for review",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "exports",
				Usage:   "Base output directory for export files",
			},
			&cli.StringFlag{
				Name:  "start",
				Usage: "First day to export (YYYY-MM-DD, UTC)",
			},
			&cli.StringFlag{
				Name:  "end",
				Usage: "Day after the last exported day (YYYY-MM-DD, UTC)",
			},
			&cli.StringFlag{
				Name:    "salt",
				Aliases: []string{"s"},
				Usage:   "Salt for pseudonymizing user IDs; empty keeps raw IDs",
			},
			&cli.StringFlag{
				Name:    "export-version",
				Aliases: []string{"v"},
				Usage:   "Export version",
			},
			&cli.StringFlag{
				Name:    "description",
				Aliases: []string{"d"},
				Usage:   "Export description",
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Aliases: []string{"c"},
				Usage:   "Number of concurrent hash operations",
				Value:   1,
			},
			&cli.UintFlag{
				Name:    "iterations",
				Aliases: []string{"i"},
				Usage:   "Number of hash iterations",
				Value:   1,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := getExportConfig(c)
			if err != nil {
				return fmt.Errorf("failed to get export configuration: %w", err)
			}

			app, err := setup.InitializeApp(ctx, telemetry.ServiceExport, ExportLogDir)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.Cleanup(ctx)

			timestamp := time.Now().UTC().Format("2006-01-02_150405")
			outDir := filepath.Join(c.String("output"), timestamp)
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			exporter := export.New(app.DB.Model().Case(), app.DB.Model().Audit(), outDir, cfg, app.Logger)

			summary, err := exporter.ExportAll(ctx)
			if err != nil {
				return fmt.Errorf("failed to export data: %w", err)
			}

			fmt.Printf("Exported %d cases, %d history entries and %d audit entries to %s\n",
				summary.Cases, summary.History, summary.Audit, outDir)
			return nil
		},
	}

	return app.Run(context.Background(), os.Args)
}

// getExportConfig retrieves export configuration from CLI flags or interactive prompts.
func getExportConfig(c *cli.Command) (*export.Config, error) {
	config := &export.Config{
		ExportVersion: c.String("export-version"),
		Description:   c.String("description"),
		Salt:          c.String("salt"),
		Concurrency:   int(c.Int("concurrency")),
		Iterations:    uint32(c.Uint("iterations")), //nolint:gosec // -
	}

	reader := bufio.NewReader(os.Stdin)

	type field struct {
		name     string
		value    *string
		prompt   string
		defValue string
	}

	start, end := c.String("start"), c.String("end")
	today := time.Now().UTC().Truncate(24 * time.Hour)

	fields := []field{
		{
			name:     "start date",
			value:    &start,
			prompt:   "Enter first day to export",
			defValue: today.AddDate(0, 0, -30).Format(dateLayout),
		},
		{
			name:     "end date",
			value:    &end,
			prompt:   "Enter day after the last exported day",
			defValue: today.AddDate(0, 0, 1).Format(dateLayout),
		},
		{
			name:     "export version",
			value:    &config.ExportVersion,
			prompt:   "Enter export version",
			defValue: "1.0.0",
		},
		{
			name:     "description",
			value:    &config.Description,
			prompt:   "Enter export description",
			defValue: "Governance Export",
		},
	}

	for _, f := range fields {
		if *f.value != "" {
			continue
		}

		val, err := promptString(reader, fmt.Sprintf("%s [%s]", f.prompt, f.defValue))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.name, err)
		}
		if val == "" {
			val = f.defValue
		}
		*f.value = val
	}

	var err error
	if config.Start, err = time.Parse(dateLayout, start); err != nil {
		return nil, fmt.Errorf("invalid start date: %w", err)
	}
	if config.End, err = time.Parse(dateLayout, end); err != nil {
		return nil, fmt.Errorf("invalid end date: %w", err)
	}
	if !config.End.After(config.Start) {
		return nil, ErrInvalidRange
	}

	if config.Salt != "" && config.Iterations == 0 {
		iter, err := promptUint32(reader, "Enter hash iterations", "1")
		if err != nil {
			return nil, fmt.Errorf("failed to read iterations: %w", err)
		}
		config.Iterations = iter
	}

	return config, nil
}

// promptString prompts for a string value.
func promptString(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt + ": ")

	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(input), nil
}

// promptUint32 prompts for a uint32 value with a default.
func promptUint32(reader *bufio.Reader, prompt, defValue string) (uint32, error) {
	val, err := promptString(reader, prompt+" ["+defValue+"]")
	if err != nil {
		return 0, err
	}

	if val == "" {
		val = defValue
	}

	num, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %w", err)
	}

	return uint32(num), nil
}
