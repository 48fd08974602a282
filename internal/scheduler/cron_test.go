package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeRescorer struct {
	calls   int
	updated int
	err     error
}

func (f *fakeRescorer) RescoreAll(context.Context) (int, error) {
	f.calls++
	return f.updated, f.err
}

func TestRescoreInvokesRescorer(t *testing.T) {
	r := &fakeRescorer{updated: 7}
	s := NewCronScheduler(r, zaptest.NewLogger(t))

	s.rescore()
	assert.Equal(t, 1, r.calls)
}

func TestRescoreSurvivesFailure(t *testing.T) {
	r := &fakeRescorer{err: errors.New("db down")}
	s := NewCronScheduler(r, zaptest.NewLogger(t))

	s.rescore()
	s.rescore()
	assert.Equal(t, 2, r.calls)
}

func TestStartStop(t *testing.T) {
	s := NewCronScheduler(&fakeRescorer{}, zaptest.NewLogger(t))
	require.NoError(t, s.Start())
	s.Stop()
}
