package logger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"nonsense", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := Wrap(zap.New(core)).With(String("run_id", "r1"))

	log.Warn("card rejected", String("job_id", "j4"), Error(errors.New("boom")))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "card rejected", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "r1", fields["run_id"])
	assert.Equal(t, "j4", fields["job_id"])
	assert.Equal(t, "boom", fields["error"])
}

func TestNew(t *testing.T) {
	log, err := New(Config{Level: "debug", Development: true, OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	log.Debug("hello")
	NewNop().Info("discarded")
}

func TestLevelsAndFieldHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := Wrap(zap.New(core))

	log.Debug("d", Int("cards", 3))
	log.Info("i", Bool("headless", true), Strings("proxies", []string{"p1"}))
	log.Warn("w", Duration("took", 2*time.Second))
	log.Error("e", Any("stats", map[string]int{"failed": 1}))

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, int64(3), entries[0].ContextMap()["cards"])
	assert.Equal(t, true, entries[1].ContextMap()["headless"])
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, 2*time.Second, entries[2].ContextMap()["took"])
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}
