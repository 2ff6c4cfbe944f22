package cron

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryRejectsInvalidInterval(t *testing.T) {
	s := NewScheduler("test")
	_, err := s.Every(0, func() {})
	assert.Error(t, err)
	_, err = s.Every(-time.Second, func() {})
	assert.Error(t, err)
	assert.Empty(t, s.Entries())
}

func TestEveryRunsJob(t *testing.T) {
	s := NewScheduler("test")
	var runs atomic.Int32
	_, err := s.Every(time.Second, func() { runs.Add(1) })
	require.NoError(t, err)
	require.Len(t, s.Entries(), 1)

	s.Start()
	defer s.Shutdown()

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestRecoverFromPanic(t *testing.T) {
	s := NewScheduler("test")
	var runs atomic.Int32
	_, err := s.Every(time.Second, func() {
		runs.Add(1)
		panic("boom")
	})
	require.NoError(t, err)

	s.Start()
	defer s.Shutdown()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 4*time.Second, 50*time.Millisecond)
}
