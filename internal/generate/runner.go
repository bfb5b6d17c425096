// Package generate drives the external CLI that turns prompts into summary
// artifacts. The CLI receives the prompt on stdin and writes the summary file
// itself; callers validate the artifact on disk, not the process output.
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds one generation run.
const DefaultTimeout = 600 * time.Second

// Request describes one generation run.
type Request struct {
	// Prompt is the full prompt text, delivered on stdin.
	Prompt string
	// PromptPath is recorded in the session log for traceability.
	PromptPath string
	// OutputPath is where the run is expected to leave its artifact.
	OutputPath string
	// LogPath receives the session log. One log per attempt; it is
	// written even when the run fails or times out.
	LogPath string
}

// Result carries what a completed run produced.
type Result struct {
	// RunID identifies the session across log and console output.
	RunID string
	// Content is the text extracted from the streaming events.
	Content string
}

// Runner executes one generation run.
type Runner interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// SessionLog is the persisted record of one run, successful or not.
type SessionLog struct {
	RunID            string            `json:"run_id"`
	Timestamp        string            `json:"timestamp"`
	Command          string            `json:"command"`
	PromptPath       string            `json:"prompt_file"`
	PromptMethod     string            `json:"prompt_method"`
	OutputFormat     string            `json:"output_format"`
	ReturnCode       int               `json:"return_code"`
	StreamingEvents  []json.RawMessage `json:"streaming_events"`
	ExtractedContent string            `json:"extracted_content"`
	RawStdout        string            `json:"raw_stdout"`
	Stderr           string            `json:"stderr"`
	Error            string            `json:"error,omitempty"`
}

// CLIRunner shells out to the configured command.
type CLIRunner struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// NewCLIRunner builds a runner for the configured command and extra args.
func NewCLIRunner(command string, args []string) *CLIRunner {
	return &CLIRunner{Command: command, Args: args, Timeout: DefaultTimeout}
}

// normalizeArgs merges configured args with the flags non-interactive
// streaming output requires. Configured --output-format values are dropped
// in favor of stream-json; --print and --verbose are kept where the user put
// them, added otherwise.
func normalizeArgs(args []string) []string {
	var final []string
	hasPrint, hasVerbose := false, false
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--print", "-p":
			hasPrint = true
			final = append(final, args[i])
		case "--output-format":
			// drop the configured format; stream-json is forced below
			if i+1 < len(args) {
				i++
			}
		case "--verbose":
			hasVerbose = true
			final = append(final, args[i])
		default:
			final = append(final, args[i])
		}
	}
	if !hasPrint {
		final = append([]string{"--print"}, final...)
	}
	final = append(final, "--output-format", "stream-json")
	if !hasVerbose {
		final = append(final, "--verbose")
	}
	return final
}

type streamEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// extractContent pulls the text out of stream-json lines. Non-JSON lines are
// skipped; the CLI mixes diagnostics into stdout under load.
func extractContent(stdout string) ([]json.RawMessage, string) {
	var events []json.RawMessage
	var content strings.Builder
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var event streamEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}
		events = append(events, json.RawMessage(line))
		if (event.Type == "content" || event.Type == "text") && event.Text != "" {
			content.WriteString(event.Text)
		}
	}
	return events, content.String()
}

// Run executes the CLI with the prompt on stdin and persists the session
// log. The log is written on every path, including timeouts, so a failed run
// always leaves evidence behind.
func (r *CLIRunner) Run(ctx context.Context, req Request) (*Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := normalizeArgs(r.Args)
	cmd := exec.CommandContext(runCtx, r.Command, args...)
	cmd.Stdin = strings.NewReader(req.Prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	events, content := extractContent(stdout.String())
	log := SessionLog{
		RunID:            uuid.NewString(),
		Timestamp:        time.Now().Format(time.RFC3339),
		Command:          r.Command + " " + strings.Join(args, " "),
		PromptPath:       req.PromptPath,
		PromptMethod:     "stdin",
		OutputFormat:     "stream-json",
		StreamingEvents:  events,
		ExtractedContent: content,
		RawStdout:        stdout.String(),
		Stderr:           stderr.String(),
	}
	if cmd.ProcessState != nil {
		log.ReturnCode = cmd.ProcessState.ExitCode()
	}

	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded)
	switch {
	case timedOut:
		log.Error = fmt.Sprintf("process timed out after %s", timeout)
	case runErr != nil:
		log.Error = runErr.Error()
	}
	if err := writeSessionLog(req.LogPath, log); err != nil {
		return nil, err
	}

	if timedOut {
		return nil, fmt.Errorf("generate: %s timed out after %s", r.Command, timeout)
	}
	if runErr != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = runErr.Error()
		}
		return nil, fmt.Errorf("generate: %s failed: %s", r.Command, detail)
	}
	return &Result{RunID: log.RunID, Content: content}, nil
}

func writeSessionLog(path string, log SessionLog) error {
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("generate: encode session log: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("generate: ensure log dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("generate: write session log: %w", err)
	}
	return nil
}
