package main

import (
	"testing"
	"time"

	infra "github.com/pot-code/progress-engine/internal/infrastructure"
	"github.com/pot-code/progress-engine/internal/lesson"
)

func TestProgressPolicy(t *testing.T) {
	option := new(infra.AppConfig)
	option.Progress.CompletionThreshold = 0.9
	option.Progress.RewindTolerance = 15 * time.Second
	option.Progress.SkewTolerance = 3 * time.Second
	option.Progress.DurationTolerance = time.Second

	want := lesson.Policy{
		CompletionThreshold: 0.9,
		RewindTolerance:     15 * time.Second,
		SkewTolerance:       3 * time.Second,
		DurationTolerance:   time.Second,
	}
	if p := progressPolicy(option); p != want {
		t.Fatalf("progressPolicy() = %+v, want %+v", p, want)
	}
}
