// This file contains the collect command: one full gather run against a URL.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pharos/internal/config"
	"pharos/internal/driver"
	"pharos/internal/gather"
	"pharos/internal/gather/gatherers"
	"pharos/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagOut      string
	flagHeadless bool
	flagBin      string
	flagDebugger string
)

var collectCmd = &cobra.Command{
	Use:   "collect [url]",
	Short: "Run the configured passes against a URL and write the artifact bundle",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollect,
}

func init() {
	collectCmd.Flags().StringVar(&flagOut, "out", "pharos-out", "output directory for the artifact bundle")
	collectCmd.Flags().BoolVar(&flagHeadless, "headless", true, "run the browser headless")
	collectCmd.Flags().StringVar(&flagBin, "chrome", "", "browser binary override")
	collectCmd.Flags().StringVar(&flagDebugger, "debugger-url", "", "attach to a running browser instead of launching one")
}

func runCollect(cmd *cobra.Command, args []string) error {
	log := logging.Named("collect")
	targetURL := args[0]

	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	passes, err := buildPasses(cfg.Passes)
	if err != nil {
		return err
	}

	drv := driver.NewRod(driver.Config{
		Bin:         flagBin,
		Headless:    flagHeadless,
		DebuggerURL: flagDebugger,
	}, logging.Named("driver"))

	log.Info("starting gather run",
		zap.String("url", targetURL),
		zap.Int("passes", len(passes)))

	result, err := gather.Run(cmd.Context(), gather.Options{
		URL:      targetURL,
		Driver:   drv,
		Settings: cfg.Settings,
		Passes:   passes,
		Logger:   logging.Named("gather"),
	})
	if err != nil {
		return fmt.Errorf("gather run: %w", err)
	}

	if err := writeBundle(flagOut, result); err != nil {
		return err
	}

	for _, w := range result.RunWarnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	fmt.Printf("Collected %d artifacts from %s in %s\n",
		len(result.Artifacts), result.FinalURL, flagOut)
	return nil
}

// buildPasses resolves configured gatherer names into engine passes.
func buildPasses(specs []config.PassSpec) ([]gather.Pass, error) {
	passes := make([]gather.Pass, 0, len(specs))
	for _, spec := range specs {
		bindings, err := gatherers.Resolve(spec.Gatherers)
		if err != nil {
			return nil, fmt.Errorf("pass %s: %w", spec.Name, err)
		}
		passes = append(passes, gather.Pass{
			Name:               spec.Name,
			Gatherers:          bindings,
			UseThrottling:      spec.UseThrottling,
			RecordTrace:        spec.RecordTrace,
			BlockedURLPatterns: spec.BlockedURLPatterns,
			BlankPage:          spec.BlankPage,
			BlankDuration:      time.Duration(spec.BlankDurationMs) * time.Millisecond,
		})
	}
	return passes, nil
}

// writeBundle persists the result: artifacts.json plus one trace and one
// protocol log per pass.
func writeBundle(dir string, result *gather.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	write := func(name string, v any) error {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		return nil
	}

	summary := struct {
		RunID        string                     `json:"runId"`
		RequestedURL string                     `json:"requestedUrl"`
		FinalURL     string                     `json:"finalUrl"`
		UserAgent    string                     `json:"userAgent"`
		FetchTime    time.Time                  `json:"fetchTime"`
		Artifacts    map[string]gather.Artifact `json:"artifacts"`
		RunWarnings  []string                   `json:"runWarnings"`
		Settings     config.Settings            `json:"settings"`
	}{
		RunID:        result.RunID,
		RequestedURL: result.RequestedURL,
		FinalURL:     result.FinalURL,
		UserAgent:    result.UserAgent,
		FetchTime:    result.FetchTime,
		Artifacts:    result.Artifacts,
		RunWarnings:  result.RunWarnings,
		Settings:     result.Settings,
	}
	if err := write("artifacts.json", summary); err != nil {
		return err
	}

	for passName, trace := range result.Traces {
		if err := write(fmt.Sprintf("trace-%s.json", passName), trace); err != nil {
			return err
		}
	}
	for passName, devtoolsLog := range result.DevtoolsLogs {
		if err := write(fmt.Sprintf("devtoolslog-%s.json", passName), devtoolsLog); err != nil {
			return err
		}
	}
	return nil
}
