package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestInit(t *testing.T) {
	tests := []struct {
		level   string
		wantErr bool
	}{
		{level: "Info"},
		{level: "debug"},
		{level: " WARN "},
		{level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := New()
			err := l.Init(tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Init(%q) error = %v; wantErr %v", tt.level, err, tt.wantErr)
			}
			if l.Log == nil {
				t.Fatal("Log must never be nil")
			}
		})
	}
}

func TestInit_LevelApplied(t *testing.T) {
	l := New()
	if err := l.Init("warn"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if l.Log.Core().Enabled(zap.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !l.Log.Core().Enabled(zap.ErrorLevel) {
		t.Error("error should be enabled at warn level")
	}
}
