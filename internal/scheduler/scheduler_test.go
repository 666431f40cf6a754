package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/occupancy/internal/logging"
	"github.com/runnerr0/occupancy/internal/storage"
)

func TestNewRejectsInvalidSpec(t *testing.T) {
	job := NewRollupJob(storage.NewMemoryStore(), time.UTC)
	_, err := New(job, "whenever", time.UTC, logging.Discard())
	assert.Error(t, err)
}

func TestSchedulerStartStop(t *testing.T) {
	job := NewRollupJob(storage.NewMemoryStore(), time.UTC)
	s, err := New(job, "5 * * * *", time.UTC, logging.Discard())
	require.NoError(t, err)

	s.Start()
	next := s.Next()
	assert.Equal(t, 5, next.Minute())
	assert.True(t, next.After(time.Now()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
