// Package process implements ports.RemoteRuleChecker by executing local
// commands. It follows a strict registry pattern: only commands that were
// explicitly registered can run, keyed by check name, so a schema can never
// make the host execute arbitrary programs.
//
// The contract with the command is small: the full check request is written
// to stdin as JSON, the field and value are additionally exposed as
// LATTICE_CHECK_* environment variables, and the command must print a JSON
// outcome ({"status": "valid|invalid|unknown", "message": "..."}) to stdout
// and exit zero. A non-zero exit or unparseable output degrades to the
// unknown outcome so the engine reports the field as pending.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

const defaultTimeout = 10 * time.Second

// RegisteredCheck is an allow-listed command execution.
type RegisteredCheck struct {
	Command string
	Args    []string
}

// Checker runs registered commands as remote rule checks.
type Checker struct {
	registry map[string]RegisteredCheck
	baseDir  string
	timeout  time.Duration
}

// Option configures the checker.
type Option func(*Checker)

// WithRegistry populates the allow-list from a loaded config file.
func WithRegistry(checks map[string]CheckConfig) Option {
	return func(c *Checker) {
		for name, check := range checks {
			c.Register(name, check.Command, check.Args...)
		}
	}
}

// WithBaseDir sets the working directory for executed commands.
func WithBaseDir(dir string) Option {
	return func(c *Checker) { c.baseDir = dir }
}

// WithTimeout bounds each command execution. The default is 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) { c.timeout = d }
}

// New creates a checker with an empty allow-list.
func New(opts ...Option) *Checker {
	c := &Checker{
		registry: make(map[string]RegisteredCheck),
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a trusted command to the allow-list under the given check
// name. Registering the same name again replaces the previous command.
func (c *Checker) Register(name string, command string, args ...string) {
	c.registry[name] = RegisteredCheck{
		Command: command,
		Args:    args,
	}
}

// Check executes the command registered for req.Check and maps its output
// onto a rule outcome. An unregistered check returns unknown without an
// error, which keeps the field pending instead of failing the evaluation.
func (c *Checker) Check(ctx context.Context, req ports.RemoteCheckRequest) (domain.RuleOutcome, error) {
	proc, ok := c.registry[req.Check]
	if !ok {
		return domain.RuleOutcome{
			Status:  domain.OutcomeUnknown,
			Message: "no command registered for check " + req.Check,
		}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(req)
	if err != nil {
		return unknown(), fmt.Errorf("encode check request: %w", err)
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = c.baseDir
	cmd.Stdin = bytes.NewReader(payload)

	// Field and value ride along as environment variables so shell one-liners
	// do not have to parse the stdin payload. Values are passed through the
	// environment rather than argv, which prevents flag injection from
	// user-controlled snapshot data.
	cmd.Env = append(cmd.Environ(),
		"LATTICE_CHECK_NAME="+req.Check,
		"LATTICE_CHECK_FIELD="+req.FieldID,
		"LATTICE_CHECK_VALUE="+envValue(req.Value),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		if msg != "" {
			return unknown(), fmt.Errorf("check %s: %w: %s", req.Check, err, msg)
		}
		return unknown(), fmt.Errorf("check %s: %w", req.Check, err)
	}

	return parseOutcome(req.Check, stdout.Bytes())
}

func parseOutcome(check string, out []byte) (domain.RuleOutcome, error) {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return unknown(), fmt.Errorf("check %s: command produced no outcome", check)
	}

	var outcome domain.RuleOutcome
	if err := json.Unmarshal([]byte(trimmed), &outcome); err != nil {
		return unknown(), fmt.Errorf("check %s: decode outcome: %w", check, err)
	}

	switch outcome.Status {
	case domain.OutcomeValid, domain.OutcomeInvalid, domain.OutcomeUnknown:
		return outcome, nil
	default:
		return unknown(), fmt.Errorf("check %s: unexpected outcome status %q", check, outcome.Status)
	}
}

// envValue renders a snapshot value for the environment: primitives print
// as-is, structured values are serialized as JSON.
func envValue(v any) string {
	switch v.(type) {
	case nil:
		return ""
	case string, int, int64, float64, bool:
		return fmt.Sprintf("%v", v)
	default:
		if raw, err := json.Marshal(v); err == nil {
			return string(raw)
		}
		return fmt.Sprintf("%v", v)
	}
}

func unknown() domain.RuleOutcome {
	return domain.RuleOutcome{Status: domain.OutcomeUnknown}
}
