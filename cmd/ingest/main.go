package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// batch registration tool: reads one JSON paper payload per line and
// registers each through the API. Failures are written one JSON line per
// paper and never stop the run.

type options struct {
	input      string
	apiBase    string
	failures   string
	wait       bool
	skipUpdate bool
	timeout    time.Duration
}

type failureLine struct {
	Pid   string `json:"pid"`
	Line  int    `json:"line"`
	Error string `json:"error"`
}

func main() {
	log, _ := zap.NewProduction()
	defer func() { _ = log.Sync() }()

	opts := options{}
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Register papers from a JSONL file through the paperlink API",
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(opts, log)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "-", "JSONL input file, - for stdin")
	cmd.Flags().StringVar(&opts.apiBase, "api", "http://localhost:8080", "paperlink API base URL")
	cmd.Flags().StringVar(&opts.failures, "failures", "ingest_failures.jsonl", "file for per-paper failure lines")
	cmd.Flags().BoolVar(&opts.wait, "wait", false, "wait for each pipeline to finish")
	cmd.Flags().BoolVar(&opts.skipUpdate, "skip-update", false, "skip papers whose pid is already registered")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "per-paper request timeout")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opts options, log *zap.Logger) error {
	in := os.Stdin
	if opts.input != "-" {
		f, err := os.Open(opts.input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}
	failures, err := os.Create(opts.failures)
	if err != nil {
		return fmt.Errorf("create failures file: %w", err)
	}
	defer failures.Close()

	client := &http.Client{Timeout: opts.timeout}
	url := strings.TrimRight(opts.apiBase, "/") + "/papers"
	if opts.wait {
		url += "?wait=true"
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	total, failed, lineNo := 0, 0, 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++
		pid, err := register(client, url, line, opts.skipUpdate)
		if err != nil {
			failed++
			log.Warn("registration failed", zap.String("pid", pid), zap.Int("line", lineNo), zap.Error(err))
			_ = json.NewEncoder(failures).Encode(failureLine{Pid: pid, Line: lineNo, Error: err.Error()})
			continue
		}
		log.Info("registered", zap.String("pid", pid), zap.Int("line", lineNo))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	log.Info("ingest finished", zap.Int("total", total), zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d of %d papers failed; see %s", failed, total, opts.failures)
	}
	return nil
}

func register(client *http.Client, url string, line []byte, skipUpdate bool) (string, error) {
	var payload map[string]any
	if err := json.Unmarshal(line, &payload); err != nil {
		return "", fmt.Errorf("invalid json: %w", err)
	}
	pid, _ := payload["pid"].(string)
	if skipUpdate {
		payload["skip_update"] = true
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return pid, err
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return pid, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return pid, fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return pid, nil
}
