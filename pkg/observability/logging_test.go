package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WARN, &buf)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("visible warning")
	logger.Error("visible error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("messages below the level must be dropped")
	}
	if !strings.Contains(out, "visible warning") || !strings.Contains(out, "visible error") {
		t.Errorf("expected warn and error entries, got %q", out)
	}
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(INFO, &buf).WithField("dataset", "glove-25")

	logger.Info("built tree", map[string]interface{}{"cardinality": 1000})

	out := buf.String()
	if !strings.Contains(out, "dataset=glove-25") {
		t.Errorf("expected derived field in output, got %q", out)
	}
	if !strings.Contains(out, "cardinality=1000") {
		t.Errorf("expected call-site field in output, got %q", out)
	}
}

func TestLoggerWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(INFO, &buf)
	parent.WithField("child", "only")

	parent.Info("from parent")
	if strings.Contains(buf.String(), "child=only") {
		t.Error("deriving a logger must not mutate the parent")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DEBUG,
		"WARN":    WARN,
		"error":   ERROR,
		"fatal":   FATAL,
		"unknown": INFO,
		"":        INFO,
	}
	for name, want := range cases {
		if got := ParseLevel(name); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestLogOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(INFO, &buf)

	if err := logger.LogOperation("build", func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "completed build") {
		t.Errorf("expected completion entry, got %q", buf.String())
	}

	buf.Reset()
	wantErr := errors.New("boom")
	if err := logger.LogOperation("search", func() error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("expected the callback error back, got %v", err)
	}
	if !strings.Contains(buf.String(), "failed search") {
		t.Errorf("expected failure entry, got %q", buf.String())
	}
}
