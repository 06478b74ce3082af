package logging

import "testing"

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(42), "unknown(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetLevelIsStable(t *testing.T) {
	// The level is resolved once; repeated calls must agree.
	first := GetLevel()
	if first < LevelDebug || first > LevelError {
		t.Fatalf("GetLevel() = %v, outside the known levels", first)
	}
	if second := GetLevel(); second != first {
		t.Errorf("GetLevel() changed between calls: %v then %v", first, second)
	}
	if IsDebugEnabled() != (first <= LevelDebug) {
		t.Error("IsDebugEnabled() disagrees with GetLevel()")
	}
}
