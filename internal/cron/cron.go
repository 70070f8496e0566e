package cron

import (
	"context"
	"os"
	"sync"
	"time"

	cronv3 "github.com/robfig/cron/v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/customeros/rfpstack/config"
	"github.com/customeros/rfpstack/interfaces"
	"github.com/customeros/rfpstack/internal/logger"
	"github.com/customeros/rfpstack/internal/tracing"
)

const (
	// GroupMailbox serializes jobs that open the shared inbox
	GroupMailbox = "mailbox"

	JobHeartbeat   = "heartbeat"
	JobMailboxPoll = "mailbox_poll"

	// LeaseDuration is how long a lease lasts before needing renewal
	LeaseDuration = 15 * time.Second
	// RenewDeadline is how long a leader has to renew its lease
	RenewDeadline = 10 * time.Second
	// RetryPeriod is how long to wait between leadership attempts
	RetryPeriod = 2 * time.Second

	leaseName = "rfpstack-cron-leader"
)

var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupMailbox: new(sync.Mutex),
	},
}

type CronManager struct {
	cfg      *config.Config
	log      logger.Logger
	cron     *cronv3.Cron
	k8s      kubernetes.Interface
	stopCh   chan struct{}
	stopOnce sync.Once
	jobIDs   map[string]cronv3.EntryID
	poller   interfaces.MailboxPoller
}

func NewCronManager(cfg *config.Config, log logger.Logger, k8s kubernetes.Interface, poller interfaces.MailboxPoller) *CronManager {
	return &CronManager{
		cfg:    cfg,
		log:    log,
		k8s:    k8s,
		stopCh: make(chan struct{}),
		jobIDs: make(map[string]cronv3.EntryID),
		poller: poller,
	}
}

// Start initializes and starts the cron manager with leader election
// If k8s is nil, it will start in local mode without leader election
func (cm *CronManager) Start(podName, namespace string) error {
	if cm.k8s == nil || os.Getenv("LOCAL_DEV") == "true" {
		cm.log.Info("Starting cron manager in local mode")
		cm.StartCron()
		return nil
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      leaseName,
			Namespace: namespace,
		},
		Client: cm.k8s.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: podName,
		},
	}

	errCh := make(chan error, 1)

	go func() {
		le, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
			Lock:            lock,
			ReleaseOnCancel: true,
			LeaseDuration:   LeaseDuration,
			RenewDeadline:   RenewDeadline,
			RetryPeriod:     RetryPeriod,
			Callbacks: leaderelection.LeaderCallbacks{
				OnStartedLeading: func(ctx context.Context) {
					cm.StartCron()
				},
				OnStoppedLeading: func() {
					cm.log.Info("Leader lost - stopping crons")
					cm.Stop()
				},
				OnNewLeader: func(identity string) {
					cm.log.Infof("New leader elected: %s", identity)
				},
			},
		})
		if err != nil {
			errCh <- err
			return
		}

		le.Run(context.Background())
	}()

	// Wait briefly to see if leader election fails immediately
	select {
	case err := <-errCh:
		cm.log.Warnf("Leader election failed, falling back to local mode: %v", err)
		cm.StartCron()
	case <-time.After(5 * time.Second):
	}

	return nil
}

// Stop waits for running jobs, then stops the scheduler. Safe to call twice.
func (cm *CronManager) Stop() {
	cm.stopOnce.Do(func() {
		if cm.cron != nil {
			cm.log.Info("Stopping cron manager")
			ctx := cm.cron.Stop()
			<-ctx.Done()
		}
		close(cm.stopCh)
	})
}

func (cm *CronManager) cronConfig() *config.CronConfig {
	if cm.cfg == nil || cm.cfg.CronConfig == nil {
		return &config.CronConfig{}
	}
	return cm.cfg.CronConfig
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	cronConfig := cm.cronConfig()

	if cronConfig.CronScheduleHeartbeat != "" {
		podName := os.Getenv("POD_NAME")
		if podName == "" {
			podName = "local"
		}
		id, err := c.AddFunc(cronConfig.CronScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.log.Infof("Cron heartbeat from pod: %s", podName)
		})
		if err != nil {
			cm.log.Fatalf("Could not add heartbeat cron job: %v", err)
		}
		cm.jobIDs[JobHeartbeat] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cronConfig.CronScheduleHeartbeat)
	}

	if cronConfig.CronScheduleMailboxPoll != "" && cm.poller != nil {
		id, err := c.AddFunc(cronConfig.CronScheduleMailboxPoll, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupMailbox].Lock()
			defer jobLocks.locks[GroupMailbox].Unlock()
			cm.pollMailbox()
		})
		if err != nil {
			cm.log.Fatalf("Could not add mailbox poll cron job: %v", err)
		}
		cm.jobIDs[JobMailboxPoll] = id
		cm.log.Infof("Registered mailbox poll job with schedule: %s", cronConfig.CronScheduleMailboxPoll)
	}
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() {
	cm.log.Info("Starting cron manager")
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

func (cm *CronManager) pollMailbox() {
	span, ctx := tracing.StartTracerSpan(context.Background(), "CronManager.pollMailbox")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	result, err := cm.poller.Poll(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Scheduled mailbox poll failed: %v", err)
		return
	}
	cm.log.Infof("Scheduled mailbox poll processed %d unread messages", result.Unread)
}
