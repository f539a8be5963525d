package observ

import "testing"

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		level string
	}{
		{"production json", "production", "info"},
		{"development console", "development", "debug"},
		{"unknown level falls back", "development", "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.env, tt.level, "test")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if logger == nil {
				t.Fatal("expected logger")
			}
		})
	}
}

func TestNewLogger_LevelApplied(t *testing.T) {
	logger, err := NewLogger("production", "warn", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger.Core().Enabled(-1) {
		t.Error("debug should be disabled at warn level")
	}
	if logger.Core().Enabled(0) {
		t.Error("info should be disabled at warn level")
	}
}
