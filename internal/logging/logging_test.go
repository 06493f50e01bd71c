package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		l, err := New(lvl)
		if err != nil { t.Fatalf("%s: %v", lvl, err) }
		want, _ := zapcore.ParseLevel(lvl)
		if !l.Core().Enabled(want) { t.Fatalf("%s not enabled", lvl) }
		if want > zapcore.DebugLevel && l.Core().Enabled(want-1) { t.Fatalf("level below %s enabled", lvl) }
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New("loud"); err == nil { t.Fatalf("expected error") }
}
