package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsKnownJobType(t *testing.T) {
	for _, jobType := range KnownJobTypes() {
		assert.True(t, IsKnownJobType(jobType), jobType)
	}

	assert.False(t, IsKnownJobType(""))
	assert.False(t, IsKnownJobType("GENERATE_REPORT"))
	assert.False(t, IsKnownJobType("mine_bitcoin"))
}

func TestJob_Terminal(t *testing.T) {
	tests := []struct {
		status   string
		terminal bool
	}{
		{JobStatusQueued, false},
		{JobStatusProcessing, false},
		{JobStatusCompleted, true},
		{JobStatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			job := &Job{Status: tt.status}
			assert.Equal(t, tt.terminal, job.Terminal())
		})
	}
}
