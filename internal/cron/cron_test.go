package cron

import (
	"os"
	"testing"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"k8s.io/client-go/kubernetes"

	"github.com/customeros/mailvector/internal/config"
	cron_config "github.com/customeros/mailvector/internal/cron/config"
	"github.com/customeros/mailvector/internal/logger"
)

type mockKubernetesInterface struct {
	kubernetes.Interface
	mock.Mock
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func TestNewCronManager(t *testing.T) {
	// Arrange
	cfg := &config.Config{
		Logger: &logger.Config{
			LogLevel: "info",
		},
	}
	log := getLogger()
	k8s := &mockKubernetesInterface{}

	// Act
	cm := NewCronManager(cfg, log, k8s, nil, nil)

	// Assert
	assert.NotNil(t, cm)
	assert.Equal(t, cfg, cm.cfg)
	assert.Equal(t, log, cm.log)
	assert.Equal(t, k8s, cm.k8s)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_StartCron(t *testing.T) {
	// Set environment variable for testing
	os.Setenv("CRON_SCHEDULE_VECTORIZE_PENDING", "0 */5 * * * *")
	os.Setenv("CRON_SCHEDULE_CACHE_CLEANUP", "0 0 * * * *")
	defer os.Unsetenv("CRON_SCHEDULE_VECTORIZE_PENDING")
	defer os.Unsetenv("CRON_SCHEDULE_CACHE_CLEANUP")

	// Arrange
	cfg := &config.Config{
		Logger: &logger.Config{
			LogLevel: "info",
		},
	}
	log := getLogger()
	k8s := &mockKubernetesInterface{}
	cm := NewCronManager(cfg, log, k8s, nil, nil)

	// Create a mock cron for testing
	mockCron := cronv3.New(cronv3.WithSeconds())

	// Register jobs directly
	var cronConfig cron_config.Config
	cronConfig.CronScheduleVectorizePending = "0 */5 * * * *"
	cronConfig.CronScheduleCacheCleanup = "0 0 * * * *"

	// Act - register jobs manually
	sweepId, err := mockCron.AddFunc(cronConfig.CronScheduleVectorizePending, func() {})
	assert.NoError(t, err)
	cm.jobIDs["vectorize_pending"] = sweepId

	cleanupId, err := mockCron.AddFunc(cronConfig.CronScheduleCacheCleanup, func() {})
	assert.NoError(t, err)
	cm.jobIDs["cache_cleanup"] = cleanupId

	cm.cron = mockCron

	// Assert
	assert.NotNil(t, cm.cron)
	assert.Equal(t, 2, len(cm.jobIDs))
}

func TestCronManager_Stop(t *testing.T) {
	// Arrange
	cfg := &config.Config{
		Logger: &logger.Config{
			LogLevel: "info",
		},
	}
	log := getLogger()
	k8s := &mockKubernetesInterface{}
	cm := NewCronManager(cfg, log, k8s, nil, nil)

	// Create a mock cron for testing
	mockCron := cronv3.New()
	mockCron.Start()
	cm.cron = mockCron

	// Act
	cm.Stop()

	// Assert
	select {
	case <-cm.stopCh:
		// Channel is closed as expected
	default:
		t.Error("Stop channel was not closed")
	}
}
