package events

import (
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/binbin1213/GAGA-Client/internal/model"
)

var testTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestBus() *Bus {
	return NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParseDownloaderLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		level    string
		message  string
		progress *float64
		speed    string
	}{
		{
			name:    "leveled info",
			line:    "12:01:33.456 INFO : Loading URL: https://x/mpd",
			level:   model.LevelInfo,
			message: "Loading URL: https://x/mpd",
		},
		{
			name:    "error",
			line:    "12:01:34.000 ERROR: disk full",
			level:   model.LevelError,
			message: "disk full",
		},
		{
			name:    "warning alias",
			line:    "WARNING : retrying segment 12",
			level:   model.LevelWarn,
			message: "retrying segment 12",
		},
		{
			name:     "progress bar",
			line:     "Vid 1920x1080 | 5000 Kbps ━━━━━━━━━━  120/400 30.25% 12.3MB/40.1MB 2.50MBps 00:00:12",
			level:    model.LevelInfo,
			message:  "Vid 1920x1080 | 5000 Kbps ━━━━━━━━━━  120/400 30.25% 12.3MB/40.1MB 2.50MBps 00:00:12",
			progress: Float(30.25),
			speed:    "2.50MBps",
		},
		{
			name:     "speed with slash",
			line:     "Aud 128 Kbps 99% 850 KB/s",
			level:    model.LevelInfo,
			message:  "Aud 128 Kbps 99% 850 KB/s",
			progress: Float(99),
			speed:    "850 KB/s",
		},
		{
			name:    "plain line",
			line:    "  some output  ",
			level:   model.LevelInfo,
			message: "some output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ParseDownloaderLine(tt.line, testTime)
			require.Equal(t, ChannelDownloadLog, e.Channel)
			require.Equal(t, tt.level, e.Level)
			require.Equal(t, tt.message, e.Message)
			require.Equal(t, tt.speed, e.Speed)
			require.Equal(t, testTime, e.Timestamp)
			if tt.progress == nil {
				require.Nil(t, e.Progress)
			} else {
				require.NotNil(t, e.Progress)
				require.InDelta(t, *tt.progress, *e.Progress, 0.0001)
			}
		})
	}
}

func TestClampProgress(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{-5, 0},
		{0, 0},
		{0.4, 0},
		{0.5, 1},
		{54.6, 55},
		{99.5, 100},
		{100, 100},
		{250, 100},
		{math.NaN(), 0},
		{math.Inf(1), 100},
		{math.Inf(-1), 0},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ClampProgress(tt.in), "ClampProgress(%v)", tt.in)
	}
}

func TestClassify(t *testing.T) {
	c := Classify(Event{Level: model.LevelError, Message: "disk full", Progress: Float(80)})
	require.True(t, c.Failed)
	require.Equal(t, "disk full", c.ErrorMessage)
	require.False(t, c.HasProgress, "errors carry no progress update")

	c = Classify(Event{Level: model.LevelInfo, Progress: Float(55.2), Speed: "1MBps"})
	require.False(t, c.Failed)
	require.True(t, c.HasProgress)
	require.Equal(t, 55, c.Progress)
	require.Equal(t, "1MBps", c.Speed)

	c = Classify(Event{Message: "Decrypting segments..."})
	require.Equal(t, model.TaskStateDecrypting, c.Phase)
	require.False(t, c.HasProgress)

	c = Classify(Event{Message: "正在合并文件"})
	require.Equal(t, model.TaskStateMerging, c.Phase)

	c = Classify(Event{Message: "Binary MERGING"})
	require.Equal(t, model.TaskStateMerging, c.Phase)

	c = Classify(Event{Message: "Done"})
	require.Equal(t, model.TaskStateCompleted, c.Phase)

	c = Classify(Event{Message: "Loading URL"})
	require.Equal(t, model.TaskState(""), c.Phase)
}

func TestBus_DeliveryOrderAndFilter(t *testing.T) {
	bus := newTestBus()

	var all, logs []string
	subAll := bus.Subscribe(func(e Event) { all = append(all, e.Message) })
	subLogs := bus.Subscribe(func(e Event) { logs = append(logs, e.Message) }, ChannelDownloadLog)
	defer subAll.Unsubscribe()
	defer subLogs.Unsubscribe()

	bus.Publish(Event{Channel: ChannelDownloadLog, Message: "a"})
	bus.Publish(BurnStatus(model.LevelInfo, "b", testTime))
	bus.Publish(ParseBurnProgressLine("out_time_us=1000", testTime))
	bus.Publish(Event{Channel: ChannelDownloadLog, Message: "c"})

	require.Equal(t, []string{"a", "b", "out_time_us=1000", "c"}, all)
	require.Equal(t, []string{"a", "c"}, logs)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := newTestBus()

	count := 0
	sub := bus.Subscribe(func(Event) { count++ })
	require.Equal(t, 1, bus.Subscribers())

	bus.Publish(Event{Channel: ChannelDownloadLog})
	sub.Unsubscribe()
	sub.Unsubscribe()
	bus.Publish(Event{Channel: ChannelDownloadLog})

	require.Equal(t, 1, count)
	require.Zero(t, bus.Subscribers())
}

func TestBus_ConcurrentPublishersAreSerialized(t *testing.T) {
	bus := newTestBus()

	var inFlight, maxInFlight, total int
	var mu sync.Mutex
	sub := bus.Subscribe(func(Event) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(time.Millisecond)

		mu.Lock()
		inFlight--
		total++
		mu.Unlock()
	})
	defer sub.Unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				bus.Publish(Event{Channel: ChannelDownloadLog})
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 40, total)
	require.Equal(t, 1, maxInFlight)
}

func TestEventLogEntry(t *testing.T) {
	entry := Event{Channel: ChannelBurnStatus, Message: "burn started", Timestamp: testTime}.LogEntry()
	require.Equal(t, model.LevelInfo, entry.Level)
	require.Equal(t, "subtitle-burn-status", entry.Source)
	require.Equal(t, "burn started", entry.Message)
}
