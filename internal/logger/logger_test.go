package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput points the logger at a buffer with colour disabled and
// returns a cleanup restoring the previous writer, level and format.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)

	mu.Lock()
	prevOut, prevColor := output, useColor
	output, useColor = buf, false
	mu.Unlock()
	prevLevel := GetLevel()
	prevFormat, _ := currentFormat.Load().(string)
	reconfigure()

	t.Cleanup(func() {
		mu.Lock()
		output, useColor = prevOut, prevColor
		mu.Unlock()
		currentLevel.Store(int32(prevLevel))
		currentFormat.Store(prevFormat)
		reconfigure()
	})
	return buf
}

func TestLevelFiltering(t *testing.T) {
	cases := []struct {
		level   string
		visible []string
		hidden  []string
	}{
		{"DEBUG", []string{"d-msg", "i-msg", "w-msg", "e-msg"}, nil},
		{"INFO", []string{"i-msg", "w-msg", "e-msg"}, []string{"d-msg"}},
		{"WARN", []string{"w-msg", "e-msg"}, []string{"d-msg", "i-msg"}},
		{"ERROR", []string{"e-msg"}, []string{"d-msg", "i-msg", "w-msg"}},
	}

	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			buf := captureOutput(t)
			SetLevel(tc.level)

			Debug("d-msg")
			Info("i-msg")
			Warn("w-msg")
			Error("e-msg")

			out := buf.String()
			for _, s := range tc.visible {
				assert.Contains(t, out, s)
			}
			for _, s := range tc.hidden {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestSetLevelIgnoresUnknown(t *testing.T) {
	_ = captureOutput(t)
	SetLevel("WARN")
	SetLevel("verbose")
	assert.Equal(t, LevelWarn, GetLevel())
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("warning")
	assert.True(t, ok)
	assert.Equal(t, LevelWarn, l)

	l, ok = ParseLevel(" debug ")
	assert.True(t, ok)
	assert.Equal(t, LevelDebug, l)

	_, ok = ParseLevel("trace")
	assert.False(t, ok)
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestTextFormat(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("text")

	Info("file received", KeyFilename, "report.pdf", KeyBytes, 4096, "note", "two words")

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "["))
	assert.Contains(t, line, "[INFO] file received")
	assert.Contains(t, line, "filename=report.pdf")
	assert.Contains(t, line, "bytes=4096")
	assert.Contains(t, line, `note="two words"`)
	assert.NotContains(t, line, "\033[")
}

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("json")

	Info("listing served", KeyArea, "trash", KeyCount, 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "listing served", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "trash", rec["area"])
	assert.EqualValues(t, 3, rec["count"])
}

func TestContextFields(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("DEBUG")
	SetFormat("text")

	lc := NewLogContext("c0ffee", "10.0.0.7").WithProtocol("command").WithOperation("UPLOAD")
	ctx := WithContext(context.Background(), lc)

	InfoCtx(ctx, "upload finished", KeyFilename, "a.txt")

	out := buf.String()
	assert.Contains(t, out, "conn_id=c0ffee")
	assert.Contains(t, out, "client_ip=10.0.0.7")
	assert.Contains(t, out, "protocol=command")
	assert.Contains(t, out, "operation=UPLOAD")
	assert.Contains(t, out, "filename=a.txt")
	assert.Less(t, strings.Index(out, "conn_id"), strings.Index(out, "filename"))
}

func TestContextWithoutLogContext(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("DEBUG")

	DebugCtx(context.Background(), "plain")
	WarnCtx(context.Background(), "plain warn")
	ErrorCtx(context.Background(), "plain error")

	out := buf.String()
	assert.Contains(t, out, "plain")
	assert.NotContains(t, out, "conn_id")
}

func TestLogContextCopiesAreIndependent(t *testing.T) {
	base := NewLogContext("id", "1.2.3.4")
	http := base.WithProtocol("http")
	traced := http.WithTrace("t1", "s1")

	assert.Empty(t, base.Protocol)
	assert.Equal(t, "http", http.Protocol)
	assert.Empty(t, http.TraceID)
	assert.Equal(t, "t1", traced.TraceID)
	assert.Equal(t, "s1", traced.SpanID)

	var nilCtx *LogContext
	assert.Nil(t, nilCtx.Clone())
	assert.Nil(t, nilCtx.WithOperation("LIST"))
	assert.Zero(t, nilCtx.DurationMs())
	assert.GreaterOrEqual(t, base.DurationMs(), 0.0)
}

func TestErrAttr(t *testing.T) {
	assert.True(t, Err(nil).Equal(slog.Attr{}))
	assert.Equal(t, "boom", Err(errors.New("boom")).Value.String())

	buf := captureOutput(t)
	Error("failed", Err(nil))
	assert.NotContains(t, buf.String(), "error=")
}

func TestHandlerGroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, false)
	l := slog.New(h).With(KeyConnID, "abc").WithGroup("http")

	l.Info("request", "status", 200)

	out := buf.String()
	assert.Contains(t, out, "conn_id=abc")
	assert.Contains(t, out, "http.status=200")
}

func TestHandlerColor(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, nil, true)
	slog.New(h).Warn("careful", "k", "v")

	assert.Contains(t, buf.String(), ansiYellow+"WARN"+ansiReset)
	assert.Contains(t, buf.String(), ansiCyan+"k"+ansiReset+"=v")
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestInitWithFileOutput(t *testing.T) {
	_ = captureOutput(t)
	path := filepath.Join(t.TempDir(), "server.log")

	require.NoError(t, Init(Config{Level: "INFO", Format: "text", Output: path}))
	Info("written to file")
	t.Cleanup(func() {
		mu.Lock()
		if logFile != nil {
			_ = logFile.Close()
			logFile = nil
		}
		mu.Unlock()
	})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestInitBadPath(t *testing.T) {
	_ = captureOutput(t)
	err := Init(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.Error(t, err)
}

func TestInitWithWriter(t *testing.T) {
	_ = captureOutput(t)
	var buf bytes.Buffer
	InitWithWriter(&buf, "DEBUG", "text", false)
	Debug("to writer")
	assert.Contains(t, buf.String(), "to writer")
}

func TestConcurrentLogging(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("text")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Info("tick")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 400, strings.Count(buf.String(), "tick\n"))
}

func TestWith(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("text")
	With(KeyUsername, "admin").Info("authenticated")
	assert.Contains(t, buf.String(), "username=admin")
}
