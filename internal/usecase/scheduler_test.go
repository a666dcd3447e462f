package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (m *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	m.job = job
	return nil
}

func (m *manualDriver) Stop(context.Context) error {
	m.stopped = true
	return nil
}

func TestSchedulerRunsPipelineOnTrigger(t *testing.T) {
	t.Parallel()

	records, cvs := fixture(t)
	notifier := &captureNotifier{}
	pipeline := NewPipeline(PipelineDeps{Records: records, CVs: cvs, Notifier: notifier, Logger: quietLogger()})
	driver := &manualDriver{}

	sched := NewScheduler(driver, pipeline, quietLogger())
	require.NoError(t, sched.Start(context.Background()))
	require.NotNil(t, driver.job)

	driver.job(execDay)
	require.Len(t, notifier.digests, 1)
	assert.Contains(t, notifier.digests[0], "2025-09-08")

	require.NoError(t, sched.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestSchedulerWithoutDriverIsNoop(t *testing.T) {
	t.Parallel()

	sched := NewScheduler(nil, nil, nil)
	assert.NoError(t, sched.Start(context.Background()))
	assert.NoError(t, sched.Stop(context.Background()))
}
