package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gameserverctl/internal/config"
	"gameserverctl/internal/gamecontrol"
	gamecontrolMocks "gameserverctl/internal/gamecontrol/mocks"
	"gameserverctl/internal/models"
	"gameserverctl/internal/probe"
	probeMocks "gameserverctl/internal/probe/mocks"
	aws "gameserverctl/internal/providers/aws"
	awsMocks "gameserverctl/internal/providers/aws/mocks"
	"gameserverctl/pkg/logging"
)

// recordingBackOff records every wait the retry loop asks for without sleeping
type recordingBackOff struct {
	interval time.Duration
	waits    []time.Duration
}

func (b *recordingBackOff) NextBackOff() time.Duration {
	b.waits = append(b.waits, b.interval)
	return 0
}

func (b *recordingBackOff) Reset() {}

func testConfig() Config {
	return Config{
		TagKey:             "Name",
		TagValue:           "7dtd",
		StartRetryInterval: 10 * time.Second,
		StartMaxAttempts:   30,
	}
}

func testInstance() *models.InstanceRef {
	return &models.InstanceRef{InstanceID: "i-0abc", State: models.PowerStateStopped}
}

func runningInstance() *models.InstanceRef {
	return &models.InstanceRef{InstanceID: "i-0abc", State: models.PowerStateRunning}
}

func statusesIn(state models.PowerState) []models.InstanceStatus {
	return []models.InstanceStatus{{InstanceID: "i-0abc", State: state}}
}

// setupServiceWithMocks creates a Service wired to mocks and a recording backoff
func setupServiceWithMocks(t *testing.T, cfg Config) (*Service, *awsMocks.InstanceServiceAPI, *probeMocks.Prober, *gamecontrolMocks.Stopper, *recordingBackOff) {
	instanceMock := awsMocks.NewInstanceServiceAPI(t)
	proberMock := probeMocks.NewProber(t)
	stopperMock := gamecontrolMocks.NewStopper(t)

	service := NewService(cfg, instanceMock, proberMock, stopperMock, logging.NewMockLogger())
	recorder := &recordingBackOff{}
	service.newBackOff = func(interval time.Duration) backoff.BackOff {
		recorder.interval = interval
		return recorder
	}
	return service, instanceMock, proberMock, stopperMock, recorder
}

func incorrectStateErr() error {
	return aws.NewAWSError(aws.ErrIncorrectState, aws.EC2ResourceType, "i-0abc",
		"Instance is not in a state that permits this operation", errors.New("IncorrectInstanceState"))
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{name: "Valid config", modify: func(c *Config) {}},
		{name: "Missing tag key", modify: func(c *Config) { c.TagKey = "" }, wantErr: true},
		{name: "Missing tag value", modify: func(c *Config) { c.TagValue = "" }, wantErr: true},
		{name: "Zero retry interval", modify: func(c *Config) { c.StartRetryInterval = 0 }, wantErr: true},
		{name: "Unbounded retries", modify: func(c *Config) { c.StartMaxAttempts = 0 }, wantErr: true},
		{
			name: "Bounded by wait only",
			modify: func(c *Config) {
				c.StartMaxAttempts = 0
				c.StartMaxWait = time.Minute
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(&cfg)
			service, _, _, _, _ := setupServiceWithMocks(t, cfg)

			err := service.validateConfig()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseOperation(t *testing.T) {
	for _, name := range []string{"start", "stop", "status", " STATUS "} {
		op, err := ParseOperation(name)
		require.NoError(t, err, name)
		assert.Contains(t, Operations(), string(op))
	}

	_, err := ParseOperation("restart")
	assert.Error(t, err)
}

func TestRun_ResolveFailureSkipsOperation(t *testing.T) {
	cases := []struct {
		name     string
		category aws.ErrorCategory
	}{
		{name: "no match", category: aws.ErrResourceNotFound},
		{name: "ambiguous match", category: aws.ErrAmbiguousMatch},
		{name: "bad credentials", category: aws.ErrProviderAuth},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service, instanceMock, _, _, _ := setupServiceWithMocks(t, testConfig())
			instanceMock.On("ResolveByTag", mock.Anything, "Name", "7dtd").
				Return(nil, aws.NewAWSError(tc.category, aws.EC2ResourceType, "Name=7dtd", "lookup failed", nil))

			for _, op := range []Operation{OperationStart, OperationStop, OperationStatus} {
				result, err := service.Run(context.Background(), op)
				require.Error(t, err)
				assert.Nil(t, result)
				assert.True(t, aws.IsErrorCategory(err, tc.category))
			}

			instanceMock.AssertNotCalled(t, "StartInstance", mock.Anything, mock.Anything)
			instanceMock.AssertNotCalled(t, "StopInstance", mock.Anything, mock.Anything)
			instanceMock.AssertNotCalled(t, "GetInstanceStatuses", mock.Anything, mock.Anything)
		})
	}
}

func TestRun_DispatchesStart(t *testing.T) {
	service, instanceMock, _, _, _ := setupServiceWithMocks(t, testConfig())
	instanceMock.On("ResolveByTag", mock.Anything, "Name", "7dtd").Return(testInstance(), nil)
	instanceMock.On("StartInstance", mock.Anything, "i-0abc").Return(nil).Once()

	result, err := service.Run(context.Background(), OperationStart)

	require.NoError(t, err)
	assert.Equal(t, OperationStart, result.Operation)
	assert.Equal(t, "i-0abc", result.Instance.InstanceID)
	assert.Nil(t, result.Report)
}

func TestRun_UnknownOperation(t *testing.T) {
	service, _, _, _, _ := setupServiceWithMocks(t, testConfig())

	_, err := service.Run(context.Background(), Operation("reboot"))
	assert.Error(t, err)
}

func TestStart_AcceptedFirstTime(t *testing.T) {
	service, instanceMock, _, _, recorder := setupServiceWithMocks(t, testConfig())
	var buf bytes.Buffer
	service.logger.SetOutput(&buf)
	instanceMock.On("StartInstance", mock.Anything, "i-0abc").Return(nil).Once()

	err := service.Start(context.Background(), testInstance())

	require.NoError(t, err)
	assert.Empty(t, recorder.waits)
	assert.Contains(t, buf.String(), "Starting server")
}

func TestStart_RetriesOnceAfterIncorrectState(t *testing.T) {
	service, instanceMock, _, _, recorder := setupServiceWithMocks(t, testConfig())
	instanceMock.On("StartInstance", mock.Anything, "i-0abc").Return(incorrectStateErr()).Once()
	instanceMock.On("GetInstanceStatuses", mock.Anything, "i-0abc").Return(statusesIn(models.PowerStateStopping), nil).Once()
	instanceMock.On("StartInstance", mock.Anything, "i-0abc").Return(nil).Once()

	err := service.Start(context.Background(), testInstance())

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{10 * time.Second}, recorder.waits)
	instanceMock.AssertNumberOfCalls(t, "StartInstance", 2)
}

func TestStart_RetryExhausted(t *testing.T) {
	cfg := testConfig()
	cfg.StartMaxAttempts = 3
	service, instanceMock, _, _, recorder := setupServiceWithMocks(t, cfg)
	instanceMock.On("StartInstance", mock.Anything, "i-0abc").Return(incorrectStateErr()).Times(3)
	instanceMock.On("GetInstanceStatuses", mock.Anything, "i-0abc").Return(statusesIn(models.PowerStateStopping), nil).Times(3)

	err := service.Start(context.Background(), testInstance())

	require.Error(t, err)
	assert.True(t, IsErrorCategory(err, ErrRetryExhausted), "got %v", err)
	assert.True(t, aws.IsErrorCategory(err, aws.ErrIncorrectState))
	assert.Len(t, recorder.waits, 2)
}

func TestStart_PermanentErrorNotRetried(t *testing.T) {
	service, instanceMock, _, _, recorder := setupServiceWithMocks(t, testConfig())
	authErr := aws.NewAWSError(aws.ErrProviderAuth, aws.EC2ResourceType, "i-0abc", "Access denied", nil)
	instanceMock.On("StartInstance", mock.Anything, "i-0abc").Return(authErr).Once()

	err := service.Start(context.Background(), testInstance())

	require.Error(t, err)
	assert.True(t, aws.IsErrorCategory(err, aws.ErrProviderAuth))
	assert.False(t, IsErrorCategory(err, ErrRetryExhausted))
	assert.Empty(t, recorder.waits)
}

func TestStart_Cancelled(t *testing.T) {
	service, instanceMock, _, _, _ := setupServiceWithMocks(t, testConfig())
	instanceMock.On("StartInstance", mock.Anything, "i-0abc").Return(incorrectStateErr()).Maybe()
	instanceMock.On("GetInstanceStatuses", mock.Anything, "i-0abc").Return(statusesIn(models.PowerStateStopping), nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := service.Start(ctx, testInstance())

	require.Error(t, err)
	assert.True(t, IsErrorCategory(err, ErrCancelled), "got %v", err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStart_TerminatedInstanceNotAttempted(t *testing.T) {
	service, instanceMock, _, _, recorder := setupServiceWithMocks(t, testConfig())

	err := service.Start(context.Background(), &models.InstanceRef{InstanceID: "i-0abc", State: models.PowerStateTerminated})

	require.Error(t, err)
	assert.True(t, IsErrorCategory(err, ErrNotStartable))
	assert.Empty(t, recorder.waits)
	instanceMock.AssertNotCalled(t, "StartInstance", mock.Anything, mock.Anything)
}

func TestStart_RejectedWhileNotTransitioning(t *testing.T) {
	for _, state := range []models.PowerState{models.PowerStateTerminated, models.PowerStateRunning, models.PowerStateUnknown} {
		t.Run(string(state), func(t *testing.T) {
			service, instanceMock, _, _, recorder := setupServiceWithMocks(t, testConfig())
			instanceMock.On("StartInstance", mock.Anything, "i-0abc").Return(incorrectStateErr()).Once()
			instanceMock.On("GetInstanceStatuses", mock.Anything, "i-0abc").Return(statusesIn(state), nil).Once()

			err := service.Start(context.Background(), testInstance())

			require.Error(t, err)
			assert.True(t, IsErrorCategory(err, ErrNotStartable), "got %v", err)
			assert.False(t, IsErrorCategory(err, ErrRetryExhausted))
			assert.Empty(t, recorder.waits)
			instanceMock.AssertNumberOfCalls(t, "StartInstance", 1)
		})
	}
}

func TestStart_RetriesWhilePending(t *testing.T) {
	service, instanceMock, _, _, recorder := setupServiceWithMocks(t, testConfig())
	instanceMock.On("StartInstance", mock.Anything, "i-0abc").Return(incorrectStateErr()).Twice()
	instanceMock.On("GetInstanceStatuses", mock.Anything, "i-0abc").Return(statusesIn(models.PowerStatePending), nil).Twice()
	instanceMock.On("StartInstance", mock.Anything, "i-0abc").Return(nil).Once()

	err := service.Start(context.Background(), testInstance())

	require.NoError(t, err)
	assert.Len(t, recorder.waits, 2)
}

func TestStart_StateRecheckFails(t *testing.T) {
	service, instanceMock, _, _, recorder := setupServiceWithMocks(t, testConfig())
	instanceMock.On("StartInstance", mock.Anything, "i-0abc").Return(incorrectStateErr()).Once()
	instanceMock.On("GetInstanceStatuses", mock.Anything, "i-0abc").
		Return(nil, aws.NewAWSError(aws.ErrThrottling, aws.EC2ResourceType, "i-0abc", "Request throttled", nil)).Once()

	err := service.Start(context.Background(), testInstance())

	require.Error(t, err)
	assert.True(t, aws.IsErrorCategory(err, aws.ErrThrottling))
	assert.Empty(t, recorder.waits)
}

func TestStop_InstanceNotRunningSkipsGameCheck(t *testing.T) {
	for _, state := range []models.PowerState{models.PowerStateStopped, models.PowerStateStopping, models.PowerStatePending} {
		t.Run(string(state), func(t *testing.T) {
			service, instanceMock, proberMock, stopperMock, _ := setupServiceWithMocks(t, testConfig())
			instanceMock.On("StopInstance", mock.Anything, "i-0abc").Return(nil).Once()

			err := service.Stop(context.Background(), &models.InstanceRef{InstanceID: "i-0abc", State: state})

			require.NoError(t, err)
			proberMock.AssertNotCalled(t, "IsGameRunning", mock.Anything)
			stopperMock.AssertNotCalled(t, "Stop", mock.Anything)
		})
	}
}

// timeoutDialer behaves like a host that drops packets on the game port
type timeoutDialer struct{}

func (timeoutDialer) DialContext(_ context.Context, _, _ string) (net.Conn, error) {
	return nil, &net.OpError{Op: "dial", Net: "tcp", Err: os.ErrDeadlineExceeded}
}

func TestStop_StoppedInstanceWithUnreachableGamePort(t *testing.T) {
	instanceMock := awsMocks.NewInstanceServiceAPI(t)
	stopperMock := gamecontrolMocks.NewStopper(t)
	logger := logging.NewMockLogger()

	endpoint := models.GameServerEndpoint{Host: "10.0.0.5", StatusPort: config.DefaultStatusPort}
	prober := probe.NewTCPProbeWithDialer(endpoint, time.Second, probe.ModeStrict, timeoutDialer{}, logger)
	service := NewService(testConfig(), instanceMock, prober, stopperMock, logger)
	instanceMock.On("StopInstance", mock.Anything, "i-0abc").Return(nil).Once()

	err := service.Stop(context.Background(), testInstance())

	require.NoError(t, err)
	instanceMock.AssertNumberOfCalls(t, "StopInstance", 1)
}

func TestStop_GameOffline(t *testing.T) {
	service, instanceMock, proberMock, stopperMock, _ := setupServiceWithMocks(t, testConfig())
	proberMock.On("IsGameRunning", mock.Anything).Return(false, nil).Once()
	instanceMock.On("StopInstance", mock.Anything, "i-0abc").Return(nil).Once()

	err := service.Stop(context.Background(), runningInstance())

	require.NoError(t, err)
	stopperMock.AssertNotCalled(t, "Stop", mock.Anything)
}

func TestStop_GameOnlineStopsGameFirst(t *testing.T) {
	service, instanceMock, proberMock, stopperMock, _ := setupServiceWithMocks(t, testConfig())

	var order []string
	proberMock.On("IsGameRunning", mock.Anything).Return(true, nil).Once()
	stopperMock.On("Stop", mock.Anything).Return(nil).Once().
		Run(func(mock.Arguments) { order = append(order, "game") })
	instanceMock.On("StopInstance", mock.Anything, "i-0abc").Return(nil).Once().
		Run(func(mock.Arguments) { order = append(order, "instance") })

	err := service.Stop(context.Background(), runningInstance())

	require.NoError(t, err)
	assert.Equal(t, []string{"game", "instance"}, order)
}

func TestStop_ControlFailureLeavesInstanceRunning(t *testing.T) {
	cases := []struct {
		name     string
		category string
	}{
		{name: "refused", category: gamecontrol.ErrControlRefused},
		{name: "unreachable", category: gamecontrol.ErrControlUnreachable},
		{name: "rejected", category: gamecontrol.ErrControlRejected},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service, instanceMock, proberMock, stopperMock, _ := setupServiceWithMocks(t, testConfig())
			proberMock.On("IsGameRunning", mock.Anything).Return(true, nil).Once()
			stopperMock.On("Stop", mock.Anything).
				Return(&gamecontrol.Error{Category: tc.category, URL: "http://10.0.0.5:5000/stop"}).Once()

			err := service.Stop(context.Background(), runningInstance())

			require.Error(t, err)
			assert.True(t, gamecontrol.IsErrorCategory(err, tc.category))
			instanceMock.AssertNotCalled(t, "StopInstance", mock.Anything, mock.Anything)
		})
	}
}

func TestStop_ProbeFailure(t *testing.T) {
	service, instanceMock, proberMock, _, _ := setupServiceWithMocks(t, testConfig())
	proberMock.On("IsGameRunning", mock.Anything).
		Return(false, &probe.Error{Category: probe.ErrProbeFailure, Address: "10.0.0.5:26900"}).Once()

	err := service.Stop(context.Background(), runningInstance())

	require.Error(t, err)
	assert.True(t, probe.IsErrorCategory(err, probe.ErrProbeFailure))
	instanceMock.AssertNotCalled(t, "StopInstance", mock.Anything, mock.Anything)
}

func TestStop_InstanceStopFails(t *testing.T) {
	service, instanceMock, proberMock, _, _ := setupServiceWithMocks(t, testConfig())
	proberMock.On("IsGameRunning", mock.Anything).Return(false, nil).Once()
	instanceMock.On("StopInstance", mock.Anything, "i-0abc").
		Return(aws.NewAWSError(aws.ErrThrottling, aws.EC2ResourceType, "i-0abc", "Request throttled", nil)).Once()

	err := service.Stop(context.Background(), runningInstance())

	require.Error(t, err)
	assert.True(t, aws.IsErrorCategory(err, aws.ErrThrottling))
}

func TestStatus(t *testing.T) {
	running := []models.InstanceStatus{{InstanceID: "i-0abc", State: models.PowerStateRunning}}

	cases := []struct {
		name          string
		statuses      []models.InstanceStatus
		probeResult   *bool
		wantCondition models.Condition
		wantState     models.PowerState
		wantMessage   string
	}{
		{
			name:          "no records",
			statuses:      nil,
			wantCondition: models.ConditionOffline,
			wantMessage:   "Server is offline",
		},
		{
			name:          "running and game online",
			statuses:      running,
			probeResult:   boolPtr(true),
			wantCondition: models.ConditionOK,
			wantState:     models.PowerStateRunning,
			wantMessage:   "Everything is OK. Server is running and game service is online",
		},
		{
			name:          "running and game offline",
			statuses:      running,
			probeResult:   boolPtr(false),
			wantCondition: models.ConditionDegraded,
			wantState:     models.PowerStateRunning,
			wantMessage:   "Server is running but game service is offline",
		},
		{
			name:          "stopped",
			statuses:      []models.InstanceStatus{{InstanceID: "i-0abc", State: models.PowerStateStopped}},
			wantCondition: models.ConditionNotRunning,
			wantState:     models.PowerStateStopped,
			wantMessage:   "Server is stopped",
		},
		{
			name:          "pending",
			statuses:      []models.InstanceStatus{{InstanceID: "i-0abc", State: models.PowerStatePending}},
			wantCondition: models.ConditionNotRunning,
			wantState:     models.PowerStatePending,
			wantMessage:   "Server is pending",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service, instanceMock, proberMock, _, _ := setupServiceWithMocks(t, testConfig())
			instanceMock.On("GetInstanceStatuses", mock.Anything, "i-0abc").Return(tc.statuses, nil).Once()
			if tc.probeResult != nil {
				proberMock.On("IsGameRunning", mock.Anything).Return(*tc.probeResult, nil).Once()
			}

			report, err := service.Status(context.Background(), testInstance())

			require.NoError(t, err)
			assert.Equal(t, "i-0abc", report.InstanceID)
			assert.Equal(t, "Name=7dtd", report.Tag)
			assert.Equal(t, tc.wantCondition, report.Condition)
			assert.Equal(t, tc.wantState, report.PowerState)
			assert.Equal(t, tc.wantMessage, report.Message)
			assert.Equal(t, tc.probeResult, report.GameRunning)
			if tc.probeResult == nil {
				proberMock.AssertNotCalled(t, "IsGameRunning", mock.Anything)
			}
		})
	}
}

func TestStatus_MultipleRecords(t *testing.T) {
	service, instanceMock, _, _, _ := setupServiceWithMocks(t, testConfig())
	instanceMock.On("GetInstanceStatuses", mock.Anything, "i-0abc").Return([]models.InstanceStatus{
		{InstanceID: "i-0abc", State: models.PowerStateRunning},
		{InstanceID: "i-0def", State: models.PowerStateRunning},
	}, nil).Once()

	report, err := service.Status(context.Background(), testInstance())

	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, IsErrorCategory(err, ErrAmbiguousStatus))
}

func TestStatus_StrictProbeFailure(t *testing.T) {
	service, instanceMock, proberMock, _, _ := setupServiceWithMocks(t, testConfig())
	instanceMock.On("GetInstanceStatuses", mock.Anything, "i-0abc").
		Return([]models.InstanceStatus{{InstanceID: "i-0abc", State: models.PowerStateRunning}}, nil).Once()
	proberMock.On("IsGameRunning", mock.Anything).
		Return(false, &probe.Error{Category: probe.ErrProbeFailure, Address: "10.0.0.5:26900"}).Once()

	_, err := service.Status(context.Background(), testInstance())

	assert.True(t, probe.IsErrorCategory(err, probe.ErrProbeFailure))
}

// refusingDialer behaves like a host that is up with nothing listening on the port
type refusingDialer struct {
	address string
}

func (d *refusingDialer) DialContext(_ context.Context, _, address string) (net.Conn, error) {
	d.address = address
	return nil, &net.OpError{Op: "dial", Net: "tcp", Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED}}
}

func TestStatus_RefusedGamePortReportsDegraded(t *testing.T) {
	instanceMock := awsMocks.NewInstanceServiceAPI(t)
	stopperMock := gamecontrolMocks.NewStopper(t)
	logger := logging.NewMockLogger()

	dialer := &refusingDialer{}
	endpoint := models.GameServerEndpoint{Host: "10.0.0.5", StatusPort: config.DefaultStatusPort}
	prober := probe.NewTCPProbeWithDialer(endpoint, time.Second, probe.ModeStrict, dialer, logger)

	service := NewService(testConfig(), instanceMock, prober, stopperMock, logger)
	instanceMock.On("ResolveByTag", mock.Anything, "Name", "7dtd").
		Return(&models.InstanceRef{InstanceID: "i-0abc", State: models.PowerStateRunning}, nil)
	instanceMock.On("GetInstanceStatuses", mock.Anything, "i-0abc").
		Return([]models.InstanceStatus{{InstanceID: "i-0abc", State: models.PowerStateRunning}}, nil)

	result, err := service.Run(context.Background(), OperationStatus)

	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:26900", dialer.address)
	assert.Equal(t, models.ConditionDegraded, result.Report.Condition)
	assert.Equal(t, boolPtr(false), result.Report.GameRunning)
}

func TestConfigFrom(t *testing.T) {
	cfg := &config.Config{
		Instance: &config.InstanceConfig{
			TagKey:             "Game",
			TagValue:           "7dtd-prod",
			StartRetryInterval: 5 * time.Second,
			StartMaxAttempts:   4,
			StartMaxWait:       time.Minute,
		},
	}

	got := ConfigFrom(cfg)

	assert.Equal(t, Config{
		TagKey:             "Game",
		TagValue:           "7dtd-prod",
		StartRetryInterval: 5 * time.Second,
		StartMaxAttempts:   4,
		StartMaxWait:       time.Minute,
	}, got)
	assert.Equal(t, "Game=7dtd-prod", got.Tag())

	defaults := ConfigFrom(&config.Config{})
	assert.Equal(t, config.DefaultTagValue, defaults.TagValue)
	assert.Equal(t, config.DefaultStartRetryInterval, defaults.StartRetryInterval)
}

func boolPtr(b bool) *bool {
	return &b
}
