package process_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/lattice/pkg/adapters/process"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireSh(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests drive checks through sh")
	}
}

func TestCheckRunsRegisteredCommand(t *testing.T) {
	requireSh(t)

	c := process.New()
	c.Register("always_valid", "sh", "-c", `echo '{"status":"valid"}'`)

	outcome, err := c.Check(context.Background(), ports.RemoteCheckRequest{
		Check:   "always_valid",
		FieldID: "username",
		Value:   "ada",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeValid, outcome.Status)
}

func TestCheckUnregisteredStaysUnknown(t *testing.T) {
	c := process.New()

	outcome, err := c.Check(context.Background(), ports.RemoteCheckRequest{
		Check: "hacker_script",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnknown, outcome.Status)
	assert.Contains(t, outcome.Message, "no command registered")
}

func TestCheckExposesValueInEnvironment(t *testing.T) {
	requireSh(t)

	c := process.New()
	c.Register("echo_value", "sh", "-c",
		`echo "{\"status\":\"invalid\",\"message\":\"$LATTICE_CHECK_VALUE is taken\"}"`)

	outcome, err := c.Check(context.Background(), ports.RemoteCheckRequest{
		Check:   "echo_value",
		FieldID: "username",
		Value:   "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeInvalid, outcome.Status)
	assert.Equal(t, "admin is taken", outcome.Message)
}

func TestCheckReadsRequestFromStdin(t *testing.T) {
	requireSh(t)

	c := process.New()
	c.Register("grep_stdin", "sh", "-c",
		`if grep -q taken_name -; then echo '{"status":"invalid","message":"name taken"}'; else echo '{"status":"valid"}'; fi`)

	outcome, err := c.Check(context.Background(), ports.RemoteCheckRequest{
		Check:   "grep_stdin",
		FieldID: "username",
		Value:   "taken_name",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeInvalid, outcome.Status)

	outcome, err = c.Check(context.Background(), ports.RemoteCheckRequest{
		Check:   "grep_stdin",
		FieldID: "username",
		Value:   "free_name",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeValid, outcome.Status)
}

func TestCheckFailureDegradesToUnknown(t *testing.T) {
	requireSh(t)

	c := process.New()
	c.Register("crashy", "sh", "-c", `echo "something went wrong" >&2; exit 123`)

	outcome, err := c.Check(context.Background(), ports.RemoteCheckRequest{Check: "crashy"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 123")
	assert.Contains(t, err.Error(), "something went wrong")
	assert.Equal(t, domain.OutcomeUnknown, outcome.Status)
}

func TestCheckRejectsUnparseableOutput(t *testing.T) {
	requireSh(t)

	c := process.New()
	c.Register("chatty", "sh", "-c", `echo "looks fine to me"`)

	outcome, err := c.Check(context.Background(), ports.RemoteCheckRequest{Check: "chatty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode outcome")
	assert.Equal(t, domain.OutcomeUnknown, outcome.Status)
}

func TestCheckHonorsTimeout(t *testing.T) {
	requireSh(t)

	c := process.New(process.WithTimeout(200 * time.Millisecond))
	c.Register("sleepy", "sh", "-c", `sleep 5; echo '{"status":"valid"}'`)

	start := time.Now()
	_, err := c.Check(context.Background(), ports.RemoteCheckRequest{Check: "sleepy"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestLoadChecksBuildsRegistry(t *testing.T) {
	requireSh(t)

	path := filepath.Join(t.TempDir(), "checks.yaml")
	raw := `checks:
  - name: unique_username
    command: sh
    args: ["-c", "echo '{\"status\":\"valid\"}'"]
  - name: ""
    command: ignored
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	checks, err := process.LoadChecks(path)
	require.NoError(t, err)
	require.Len(t, checks, 1)

	c := process.New(process.WithRegistry(checks))
	outcome, err := c.Check(context.Background(), ports.RemoteCheckRequest{Check: "unique_username"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeValid, outcome.Status)
}

func TestLoadChecksMissingFileIsEmpty(t *testing.T) {
	checks, err := process.LoadChecks(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, checks)
}
