package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		level       string
		enabled     zap.AtomicLevel
	}{
		{name: "dev debug", environment: "dev", level: "debug", enabled: zap.NewAtomicLevelAt(zap.DebugLevel)},
		{name: "prod warn", environment: "prod", level: "warn", enabled: zap.NewAtomicLevelAt(zap.WarnLevel)},
		{name: "bad level falls back to info", environment: "prod", level: "loud", enabled: zap.NewAtomicLevelAt(zap.InfoLevel)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.environment, tt.level)
			require.NoError(t, err)
			require.NotNil(t, log)

			lvl := tt.enabled.Level()
			assert.True(t, log.Core().Enabled(lvl))
			if lvl > zap.DebugLevel {
				assert.False(t, log.Core().Enabled(lvl-1))
			}
		})
	}
}
