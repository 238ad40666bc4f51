package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdecide/internal/config"
	"github.com/leapstack-labs/leapdecide/internal/testutil"
	"github.com/leapstack-labs/leapdecide/pkg/decide"
)

func policyWithAction(action string) string {
	return `
from hl7_messages
time_column event_ts
flag is_emergency := patient_class = 'E'
decision action_id {
  when is_emergency -> ` + action + `
  else -> 0
}
`
}

func newTestContext(t *testing.T) (*CommandContext, *testutil.LogBuffer, *testutil.LogBuffer) {
	t.Helper()
	logger, logs := testutil.NewCaptureLogger()
	out := &testutil.LogBuffer{}
	return &CommandContext{Cfg: config.Default(), Logger: logger, Out: out, Err: out}, out, logs
}

func TestReadPolicies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.policy")
	require.NoError(t, os.WriteFile(path, []byte("from t"), 0o600))

	files, err := readPolicies(strings.NewReader("from stdin"), nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, stdinPath, files[0].Path)
	assert.Equal(t, "from stdin", files[0].Source)

	files, err = readPolicies(nil, []string{path})
	require.NoError(t, err)
	assert.Equal(t, "from t", files[0].Source)

	_, err = readPolicies(nil, []string{filepath.Join(dir, "missing.policy")})
	require.Error(t, err)
}

func TestCompileAll_KeepsOrder(t *testing.T) {
	cc, _, _ := newTestContext(t)
	compiler, cleanup, err := cc.Compiler(context.Background(), false)
	require.NoError(t, err)
	defer cleanup()

	c := &compileRun{cc: cc, compiler: compiler}
	var files []policyFile
	for i := 1; i <= 20; i++ {
		files = append(files, policyFile{Path: string(rune('a'+i)) + ".policy", Source: policyWithAction(strings.Repeat("1", i%5+1))})
	}
	files = append(files, policyFile{Path: "broken.policy", Source: "decision d {"})

	results := c.compileAll(context.Background(), files)
	require.Len(t, results, len(files))
	for i, r := range results[:20] {
		require.NoError(t, r.Err)
		assert.Equal(t, files[i].Path, r.Path)
		assert.Contains(t, r.Result.SQL, "THEN "+strings.Repeat("1", (i+1)%5+1)+"\n")
	}
	require.Error(t, results[20].Err)

	err = failures(results)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.policy")
	assert.Equal(t, decide.KindParse, decide.KindOf(err))
}

func TestFailures(t *testing.T) {
	assert.NoError(t, failures([]fileResult{{Path: "a"}}))

	err := failures([]fileResult{
		{Path: "a", Err: &decide.UnsupportedEntryPointError{EntryPoint: "x"}},
		{Path: "b", Err: os.ErrNotExist},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 2 files failed")
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.True(t, decide.IsConfigError(err))
}

func TestRunCompile_WatchRejectsStdin(t *testing.T) {
	cc, _, _ := newTestContext(t)
	err := runCompile(context.Background(), cc, strings.NewReader(policyWithAction("2")), nil, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "standard input")
}

func TestRunCompile_Watch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watched.policy")
	require.NoError(t, os.WriteFile(path, []byte(policyWithAction("2")), 0o600))

	cc, out, logs := newTestContext(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- runCompile(ctx, cc, nil, []string{path}, true) }()

	require.Eventually(t, func() bool {
		return out.Contains("THEN 2") && logs.Contains("watching for changes")
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(policyWithAction("7")), 0o600))
	require.Eventually(t, func() bool {
		return out.Contains("THEN 7")
	}, 5*time.Second, 20*time.Millisecond)

	// a broken save reports the error and keeps watching
	require.NoError(t, os.WriteFile(path, []byte("decision d {"), 0o600))
	require.Eventually(t, func() bool {
		return out.Contains("error: " + path)
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
