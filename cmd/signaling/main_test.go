package main

import (
	"testing"

	"github.com/mossy-p/voxa-signaling/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetupLogger(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		setupLogger(&config.Config{LogLevel: tt.level, Environment: "production"})
		assert.Equal(t, tt.want, zerolog.GlobalLevel(), tt.level)
	}
}
