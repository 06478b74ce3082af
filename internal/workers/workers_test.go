package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	cpus := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		override   string
		multiplier float64
		limit      int
		want       int
	}{
		{
			name:       "CPU bound",
			multiplier: 1.0,
			want:       cpus,
		},
		{
			name:       "IO bound doubles",
			multiplier: 2.0,
			want:       cpus * 2,
		},
		{
			name:       "Limit caps the count",
			multiplier: 2.0,
			limit:      1,
			want:       1,
		},
		{
			name:       "Fractional multiplier never drops below one",
			multiplier: 0.01,
			want:       1,
		},
		{
			name:       "Env override wins",
			override:   "7",
			multiplier: 1.0,
			want:       7,
		},
		{
			name:       "Env override respects limit",
			override:   "7",
			multiplier: 1.0,
			limit:      3,
			want:       3,
		},
		{
			name:       "Garbage override ignored",
			override:   "lots",
			multiplier: 1.0,
			want:       cpus,
		},
		{
			name:       "Non-positive override ignored",
			override:   "0",
			multiplier: 1.0,
			want:       cpus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TRANSCODE_WORKERS", tt.override)
			if got := Count(tt.multiplier, tt.limit); got != tt.want {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, tt.want)
			}
		})
	}
}

func TestForCPUAndForIO(t *testing.T) {
	t.Setenv("TRANSCODE_WORKERS", "")
	if got, want := ForCPU(0), Count(1.0, 0); got != want {
		t.Errorf("ForCPU(0) = %d, want %d", got, want)
	}
	if got, want := ForIO(0), Count(2.0, 0); got != want {
		t.Errorf("ForIO(0) = %d, want %d", got, want)
	}
}
