package sampling

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResourceMonitor/pkg/collecting"
	"ResourceMonitor/pkg/exporting"
	"ResourceMonitor/pkg/utils"
)

const testInterval = 5 * time.Millisecond

// countingSampler counts ticks through its CPU reads.
type countingSampler struct {
	ticks atomic.Int64
	fail  atomic.Bool
}

var errGone = errors.New("process gone")

func (s *countingSampler) PID() int32 { return 4242 }

func (s *countingSampler) MemoryPercent(context.Context) (float64, error) {
	return 12.5, nil
}

func (s *countingSampler) CPUPercent(context.Context) (float64, error) {
	if s.fail.Load() {
		return 0, errGone
	}
	return float64(s.ticks.Add(1)), nil
}

type staticGPU struct{}

func (staticGPU) Name() string { return "static" }
func (staticGPU) ListNames(context.Context) ([]string, error) {
	return []string{"GPU 0: Test"}, nil
}
func (staticGPU) Query(context.Context) ([]collecting.GPUStats, error) {
	return []collecting.GPUStats{{Index: 0, UtilizationPercent: 30, MemoryTotalMiB: 1000, MemoryUsedMiB: 100}}, nil
}
func (staticGPU) Close() error { return nil }

func testConfig(s *countingSampler) Config {
	return Config{
		Interval: testInterval,
		NewSampler: func(context.Context, int32) (collecting.ProcessSampler, error) {
			return s, nil
		},
	}
}

func spawn(t *testing.T, cfg Config) *Controller {
	t.Helper()
	c, err := Spawn(context.Background(), cfg)
	require.NoError(t, err)
	return c
}

func waitDone(t *testing.T, c *Controller) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not terminate")
	}
}

func runSession(t *testing.T, c *Controller, path string) FlushResult {
	t.Helper()
	require.NoError(t, c.StartSession(path))
	time.Sleep(10 * testInterval)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := c.StopSessionSync(ctx)
	require.NoError(t, err)
	return res
}

func loadTimes(t *testing.T, path string) ([]exporting.Record, []string, []float64) {
	t.Helper()
	records, columns, err := exporting.LoadRecords(path)
	require.NoError(t, err)
	times := make([]float64, len(records))
	for i, r := range records {
		ts, ok := utils.ToFloat64Ok(r[utils.TimeColumn])
		require.True(t, ok)
		times[i] = ts
	}
	return records, columns, times
}

func assertIncreasing(t *testing.T, times []float64) {
	t.Helper()
	for i := 1; i < len(times); i++ {
		assert.Greater(t, times[i], times[i-1])
	}
}

func TestParseMessage(t *testing.T) {
	cases := []struct {
		text string
		want Message
		bad  bool
	}{
		{text: "start /tmp/a.csv", want: Message{Command: CommandStart, Path: "/tmp/a.csv"}},
		{text: "  start\t/tmp/b.csv\n", want: Message{Command: CommandStart, Path: "/tmp/b.csv"}},
		{text: "stop", want: Message{Command: CommandStop}},
		{text: "exit\n", want: Message{Command: CommandExit}},
		{text: "start", bad: true},
		{text: "start a b", bad: true},
		{text: "stop now", bad: true},
		{text: "pause", bad: true},
		{text: "", bad: true},
		{text: "STOP", bad: true},
	}

	for _, tc := range cases {
		msg, err := ParseMessage(tc.text)
		if tc.bad {
			assert.ErrorIs(t, err, ErrProtocol, tc.text)
			continue
		}
		require.NoError(t, err, tc.text)
		assert.Equal(t, tc.want, msg)
	}

	assert.Equal(t, "start /x", Message{Command: CommandStart, Path: "/x"}.String())
	assert.Equal(t, "exit", Message{Command: CommandExit}.String())
}

func TestBufferAppend(t *testing.T) {
	b := NewBuffer([]string{"a", "b"})

	require.NoError(t, b.Append(Tick{Time: 1, Values: []float64{1, 2}}))
	require.NoError(t, b.Append(Tick{Time: 2, Values: []float64{3, 4}}))
	assert.Error(t, b.Append(Tick{Time: 3, Values: []float64{5}}))
	assert.Error(t, b.Append(Tick{Time: 2, Values: []float64{5, 6}}))

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []float64{1, 2}, b.Times())
	a, ok := b.Series("a")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 3}, a)
	_, ok = b.Series("c")
	assert.False(t, ok)

	assert.Equal(t, []string{"time", "a", "b"}, b.Columns())
	records := b.Records()
	require.Len(t, records, 2)
	assert.Equal(t, exporting.Record{"time": 2.0, "a": 3.0, "b": 4.0}, records[1])

	b.Reset()
	assert.Equal(t, 0, b.Len())
	a, _ = b.Series("a")
	assert.Empty(t, a)
	assert.Equal(t, []string{"a", "b"}, b.Names())
}

func TestBufferFlush(t *testing.T) {
	b := NewBuffer([]string{"a"})
	for i := 1; i <= 3; i++ {
		require.NoError(t, b.Append(Tick{Time: float64(i) / 10, Values: []float64{float64(i)}}))
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	rows, err := b.Flush(path)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)

	records, columns, times := loadTimes(t, path)
	assert.Equal(t, []string{"time", "a"}, columns)
	assert.Len(t, records, 3)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, times)

	_, err = b.Flush(filepath.Join(t.TempDir(), "missing", "out.csv"))
	assert.Error(t, err)
}

func TestConsecutiveSessionsAreIndependent(t *testing.T) {
	s := &countingSampler{}
	c := spawn(t, testConfig(s))
	dir := t.TempDir()

	first := runSession(t, c, filepath.Join(dir, "monitor_train.csv"))
	assert.Equal(t, 0, c.worker.buffer.Len())
	second := runSession(t, c, filepath.Join(dir, "monitor_predict.csv"))
	require.NoError(t, c.Shutdown())

	assert.NotEqual(t, first.Session, second.Session)
	assert.Equal(t, s.ticks.Load(), int64(first.Rows+second.Rows))

	firstRecords, columns, firstTimes := loadTimes(t, first.Path)
	assert.Len(t, firstRecords, first.Rows)
	assert.Positive(t, first.Rows)
	assert.Equal(t, []string{"time", "cpu_memory_percent", "cpu_util_percent"}, columns)
	assertIncreasing(t, firstTimes)

	secondRecords, _, secondTimes := loadTimes(t, second.Path)
	assert.Len(t, secondRecords, second.Rows)
	assertIncreasing(t, secondTimes)
	assert.Greater(t, secondTimes[0], firstTimes[len(firstTimes)-1])

	// cpu_util_percent carries the tick counter, so the second file
	// continues where the first stopped.
	assert.Equal(t, float64(first.Rows+1), secondRecords[0]["cpu_util_percent"])
	assert.Equal(t, Terminated, c.State())
}

func TestFireAndForgetStopThenShutdown(t *testing.T) {
	c := spawn(t, testConfig(&countingSampler{}))
	path := filepath.Join(t.TempDir(), "session.jsonl")

	require.NoError(t, c.StartSession(path))
	time.Sleep(3 * testInterval)
	require.NoError(t, c.StopSession())
	require.NoError(t, c.Shutdown())

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestGPUColumns(t *testing.T) {
	cfg := testConfig(&countingSampler{})
	cfg.GPU = staticGPU{}
	c := spawn(t, cfg)

	res := runSession(t, c, filepath.Join(t.TempDir(), "gpu.csv"))
	require.NoError(t, c.Shutdown())

	records, columns, _ := loadTimes(t, res.Path)
	assert.Equal(t, []string{
		"time", "cpu_memory_percent", "cpu_util_percent",
		"gpu_util_percent_0", "gpu_memory_total_MiB_0", "gpu_memory_used_MiB_0", "gpu_memory_used_percent_0",
	}, columns)
	assert.Equal(t, 10.0, records[0]["gpu_memory_used_percent_0"])
}

func TestUnrecognizedMessageTerminatesWorker(t *testing.T) {
	c := spawn(t, testConfig(&countingSampler{}))

	require.NoError(t, c.Send("pause", nil))
	waitDone(t, c)

	assert.ErrorIs(t, c.Err(), ErrProtocol)
	assert.Equal(t, Terminated, c.State())
	assert.ErrorIs(t, c.StartSession("/tmp/never.csv"), ErrWorkerDead)
	assert.ErrorIs(t, c.Shutdown(), ErrProtocol)
}

func TestUnrecognizedMessageWhileSampling(t *testing.T) {
	c := spawn(t, testConfig(&countingSampler{}))
	path := filepath.Join(t.TempDir(), "lost.csv")

	require.NoError(t, c.StartSession(path))
	require.NoError(t, c.Send("pause", nil))
	waitDone(t, c)

	assert.ErrorIs(t, c.Err(), ErrProtocol)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOutOfStateMessages(t *testing.T) {
	c := spawn(t, testConfig(&countingSampler{}))
	require.NoError(t, c.StopSession())
	waitDone(t, c)
	assert.ErrorIs(t, c.Err(), ErrProtocol)

	c = spawn(t, testConfig(&countingSampler{}))
	require.NoError(t, c.StartSession(filepath.Join(t.TempDir(), "a.csv")))
	assert.ErrorIs(t, c.Shutdown(), ErrProtocol)
}

func TestStartSessionRejectsBadPath(t *testing.T) {
	c := spawn(t, testConfig(&countingSampler{}))
	defer c.Shutdown()

	assert.Error(t, c.StartSession(""))
	assert.Error(t, c.StartSession("/tmp/with space.csv"))
	assert.Equal(t, Idle, c.State())
}

func TestTargetFailureEndsWorker(t *testing.T) {
	s := &countingSampler{}
	c := spawn(t, testConfig(s))

	require.NoError(t, c.StartSession(filepath.Join(t.TempDir(), "x.csv")))
	s.fail.Store(true)
	waitDone(t, c)

	assert.ErrorIs(t, c.Err(), errGone)
	_, err := c.StopSessionSync(context.Background())
	assert.ErrorIs(t, err, ErrWorkerDead)
}

func TestFlushFailureIsAcknowledged(t *testing.T) {
	c := spawn(t, testConfig(&countingSampler{}))

	require.NoError(t, c.StartSession(filepath.Join(t.TempDir(), "missing", "x.csv")))
	time.Sleep(2 * testInterval)
	res, err := c.StopSessionSync(context.Background())
	require.Error(t, err)
	assert.Equal(t, err, res.Err)
	waitDone(t, c)
	assert.Error(t, c.Err())
}

func TestNoParentFailsFast(t *testing.T) {
	cfg := testConfig(&countingSampler{})
	cfg.Target = func() (int32, error) { return 0, ErrNoParent }
	c := spawn(t, cfg)

	waitDone(t, c)
	assert.ErrorIs(t, c.Err(), ErrNoParent)
}

func TestContextCancelStopsWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c, err := Spawn(ctx, testConfig(&countingSampler{}))
	require.NoError(t, err)

	require.NoError(t, c.StartSession(filepath.Join(t.TempDir(), "x.csv")))
	cancel()
	waitDone(t, c)
	assert.ErrorIs(t, c.Err(), context.Canceled)
}

func TestTargets(t *testing.T) {
	pid, err := SelfTarget()
	require.NoError(t, err)
	assert.Equal(t, int32(os.Getpid()), pid)

	ppid, err := ParentTarget()
	require.NoError(t, err)
	assert.Equal(t, int32(os.Getppid()), ppid)

	pid, err = PIDTarget(99)()
	require.NoError(t, err)
	assert.Equal(t, int32(99), pid)
}

func TestWorkerSamplesRealProcess(t *testing.T) {
	c := spawn(t, Config{Interval: testInterval, GPU: collecting.NoGPU{}})
	res := runSession(t, c, filepath.Join(t.TempDir(), "self.csv"))
	require.NoError(t, c.Shutdown())

	records, _, times := loadTimes(t, res.Path)
	assert.Len(t, records, res.Rows)
	assertIncreasing(t, times)
	assert.Greater(t, utils.ToFloat64(records[0]["cpu_memory_percent"]), 0.0)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "sampling", Sampling.String())
	assert.Equal(t, "terminated", Terminated.String())
}
