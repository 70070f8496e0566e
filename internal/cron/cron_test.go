package cron

import (
	"context"
	"testing"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"k8s.io/client-go/kubernetes"

	"github.com/customeros/rfpstack/config"
	"github.com/customeros/rfpstack/dto"
	errs "github.com/customeros/rfpstack/internal/errors"
	"github.com/customeros/rfpstack/internal/logger"
	"github.com/customeros/rfpstack/internal/utils"
)

type mockKubernetesInterface struct {
	kubernetes.Interface
	mock.Mock
}

type mockPoller struct {
	mock.Mock
}

func (m *mockPoller) Poll(ctx context.Context) (*dto.PollResult, error) {
	args := m.Called(ctx)
	result, _ := args.Get(0).(*dto.PollResult)
	return result, args.Error(1)
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		LogLevel: "error",
		DevMode:  true,
	})
	appLogger.InitLogger()
	return appLogger
}

func getConfig() *config.Config {
	return &config.Config{
		CronConfig: &config.CronConfig{
			CronScheduleHeartbeat:   "0 * * * * *",
			CronScheduleMailboxPoll: "0 */5 * * * *",
		},
	}
}

func TestNewCronManager(t *testing.T) {
	// Arrange
	cfg := getConfig()
	log := getLogger()
	k8s := &mockKubernetesInterface{}
	poller := &mockPoller{}

	// Act
	cm := NewCronManager(cfg, log, k8s, poller)

	// Assert
	assert.NotNil(t, cm)
	assert.Equal(t, cfg, cm.cfg)
	assert.Equal(t, log, cm.log)
	assert.Equal(t, k8s, cm.k8s)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_RegisterJobs(t *testing.T) {
	// Arrange
	cm := NewCronManager(getConfig(), getLogger(), nil, &mockPoller{})
	c := cronv3.New(cronv3.WithSeconds())

	// Act
	cm.registerJobs(c)

	// Assert
	assert.Len(t, cm.jobIDs, 2)
	assert.Contains(t, cm.jobIDs, JobHeartbeat)
	assert.Contains(t, cm.jobIDs, JobMailboxPoll)
	assert.Len(t, c.Entries(), 2)
}

func TestCronManager_RegisterJobsWithoutPoller(t *testing.T) {
	// Arrange
	cm := NewCronManager(getConfig(), getLogger(), nil, nil)
	c := cronv3.New(cronv3.WithSeconds())

	// Act
	cm.registerJobs(c)

	// Assert
	assert.Len(t, cm.jobIDs, 1)
	assert.NotContains(t, cm.jobIDs, JobMailboxPoll)
}

func TestCronManager_PollMailbox(t *testing.T) {
	// Arrange
	poller := &mockPoller{}
	result := dto.NewPollResult(utils.Now())
	result.Unread = 3
	poller.On("Poll", mock.Anything).Return(result, nil).Once()
	poller.On("Poll", mock.Anything).Return(nil, errs.ErrConnection).Once()
	cm := NewCronManager(getConfig(), getLogger(), nil, poller)

	// Act
	cm.pollMailbox()
	cm.pollMailbox()

	// Assert
	poller.AssertNumberOfCalls(t, "Poll", 2)
}

func TestCronManager_StartLocalAndStop(t *testing.T) {
	// Arrange
	cm := NewCronManager(getConfig(), getLogger(), nil, &mockPoller{})

	// Act
	err := cm.Start("pod-0", "default")
	cm.Stop()
	cm.Stop()

	// Assert
	assert.NoError(t, err)
	assert.NotNil(t, cm.cron)
	select {
	case <-cm.stopCh:
	default:
		t.Error("Stop channel was not closed")
	}
}
