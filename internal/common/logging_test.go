package common

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_FluentAPI(t *testing.T) {
	logger := NewLogger("error")
	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}
	logger.Info().Str("tool", "get_current_stock_quote").Msg("test message")
	logger.Warn().Int("entries", 4).Msg("warning")
	logger.Error().Err(nil).Msg("error message")
	logger.Debug().Float64("price", 187.5).Bool("ok", true).Msg("debug")
}

func TestNewLoggerWithOutput_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("info", &buf)
	logger.Info().Str("function", "GLOBAL_QUOTE").Msg("upstream request")

	out := buf.String()
	if !strings.Contains(out, "upstream request") {
		t.Errorf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "function=GLOBAL_QUOTE") {
		t.Errorf("expected field in output, got %q", out)
	}
}

func TestNewSilentLogger_DoesNotWriteToGlobalWriters(t *testing.T) {
	var buf bytes.Buffer
	_ = NewLoggerWithOutput("info", &buf)
	buf.Reset()

	silent := NewSilentLogger()
	silent.Info().Str("key", "value").Msg("this should NOT appear")
	silent.Error().Msg("this should NOT appear either")

	if buf.Len() > 0 {
		t.Errorf("silent logger wrote %d bytes: %s", buf.Len(), buf.String())
	}
}

func TestNewLogger_DoesNotWriteToStdout(t *testing.T) {
	// stdout is the MCP stdio channel.
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	logger := NewLogger("info")
	logger.Info().Str("tool", "test").Msg("this must not go to stdout")

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	buf.ReadFrom(r)
	r.Close()

	if buf.Len() > 0 {
		t.Errorf("logger wrote %d bytes to stdout: %s", buf.Len(), buf.String())
	}
}

func TestNewLoggerFromConfig_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.log")
	logger := NewLoggerFromConfig(LoggingConfig{
		Level:    "info",
		Outputs:  []string{"file"},
		FilePath: path,
	})
	logger.Info().Msg("file output")
}

func TestWithCorrelationId_ReturnsNewLogger(t *testing.T) {
	logger := NewSilentLogger()
	tagged := logger.WithCorrelationId("inv-1")
	if tagged == nil {
		t.Fatal("WithCorrelationId returned nil")
	}
	if tagged == logger {
		t.Error("WithCorrelationId should return a new logger")
	}
	tagged.Info().Msg("tagged")
}
