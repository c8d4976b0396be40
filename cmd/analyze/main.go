// Command analyze is a terminal client for the analysis service. It asks
// for the same figures as the web form, validates them and prints a text
// summary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"finform/internal/analysis"
	"finform/internal/cli"
	"finform/internal/config"
	"finform/internal/core"
	"finform/internal/log"
	"finform/internal/render"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()

	analyzerURL := flag.String("analyzer", cfg.AnalyzerBaseURL, "analysis service base URL")
	timeout := flag.Duration("timeout", cfg.AnalyzerTimeout, "analysis request timeout")
	flag.Parse()

	logCfg := log.Config{Level: slog.LevelWarn, Component: log.ComponentCLI, Output: os.Stderr}
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil && lvl > logCfg.Level {
		logCfg.Level = lvl
	}
	logger := log.New(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	formatter, err := render.NewFormatter(cfg.CurrencyLocale, cfg.CurrencySymbol)
	if err != nil {
		logger.Error("Invalid currency settings", log.FieldError, err)
		os.Exit(1)
	}
	client, err := analysis.NewClient(analysis.Config{BaseURL: *analyzerURL, Timeout: *timeout})
	if err != nil {
		logger.Error("Failed to create analysis client", log.FieldError, err)
		os.Exit(1)
	}

	code := run(ctx, os.Stdin, os.Stdout, client, core.NewValidator(cfg.SalaryFloor), formatter)
	os.Exit(code)
}

type analyzer interface {
	Analyze(ctx context.Context, req core.AnalysisRequest) (core.AnalysisResult, error)
}

// run returns the process exit code: 0 on a printed summary, 1 when the
// input is rejected and 2 when the analysis fails.
func run(ctx context.Context, in io.Reader, out io.Writer, a analyzer, v core.Validator, f *render.Formatter) int {
	form, err := collectForm(newPrompter(in, out))
	if err != nil {
		fmt.Fprintf(out, "\n%v\n", err)
		return 1
	}

	req, err := v.Validate(form)
	if err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(out, "\n%s\n", verr.Message)
		} else {
			fmt.Fprintf(out, "\n%v\n", err)
		}
		return 1
	}

	result, err := a.Analyze(ctx, req)
	if err != nil {
		fmt.Fprintln(out, "\nFailed to fetch data. Check backend or internet.")
		fmt.Fprintf(out, "(%v)\n", err)
		return 2
	}

	view := render.Summary(result, f)
	view.SavingsGoal = f.Currency(req.SavingsGoal.InexactFloat64())
	if err := render.WriteText(out, view); err != nil {
		return 2
	}
	return 0
}
