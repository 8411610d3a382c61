package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"gameserverctl/internal/config"
	"gameserverctl/internal/gamecontrol"
	"gameserverctl/internal/models"
	"gameserverctl/internal/probe"
	aws "gameserverctl/internal/providers/aws"
	"gameserverctl/pkg/logging"
)

type handler func(ctx context.Context, instance *models.InstanceRef) (*models.StatusReport, error)

// Service controls the lifecycle of the game server instance.
type Service struct {
	config  Config
	awsSrv  aws.InstanceServiceAPI
	prober  probe.Prober
	stopper gamecontrol.Stopper
	logger  logging.Logger

	// newBackOff builds the wait policy between start attempts
	newBackOff func(interval time.Duration) backoff.BackOff
	handlers   map[Operation]handler
}

// NewService creates a new lifecycle service with the given configuration.
func NewService(
	config Config,
	awsSrv aws.InstanceServiceAPI,
	prober probe.Prober,
	stopper gamecontrol.Stopper,
	logger logging.Logger,
) *Service {
	s := &Service{
		config:  config,
		awsSrv:  awsSrv,
		prober:  prober,
		stopper: stopper,
		logger:  logger,
		newBackOff: func(interval time.Duration) backoff.BackOff {
			return backoff.NewConstantBackOff(interval)
		},
	}
	s.handlers = map[Operation]handler{
		OperationStart: func(ctx context.Context, instance *models.InstanceRef) (*models.StatusReport, error) {
			return nil, s.Start(ctx, instance)
		},
		OperationStop: func(ctx context.Context, instance *models.InstanceRef) (*models.StatusReport, error) {
			return nil, s.Stop(ctx, instance)
		},
		OperationStatus: s.Status,
	}
	return s
}

// NewDefaultService creates a new service with default implementations of dependencies
func NewDefaultService(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Service, error) {
	awsService, err := aws.NewInstanceServiceFromConfig(ctx, aws.SessionConfig{
		Region:          cfg.AWS.Region,
		Profile:         cfg.AWS.Profile,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		SessionToken:    cfg.AWS.SessionToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AWS service: %w", err)
	}

	endpoint := cfg.Endpoint()
	prober := probe.NewTCPProbe(endpoint, cfg.GameServer.ProbeTimeout, probe.Mode(cfg.GameServer.ProbeMode), logger)
	stopper := gamecontrol.NewClient(endpoint, logger)

	return NewService(ConfigFrom(cfg), awsService, prober, stopper, logger), nil
}

// ConfigFrom extracts the controller settings from the loaded configuration.
func ConfigFrom(cfg *config.Config) Config {
	c := Config{
		TagKey:             config.DefaultTagKey,
		TagValue:           config.DefaultTagValue,
		StartRetryInterval: config.DefaultStartRetryInterval,
		StartMaxAttempts:   config.DefaultStartMaxAttempts,
	}
	if inst := cfg.Instance; inst != nil {
		c.TagKey = inst.TagKey
		c.TagValue = inst.TagValue
		c.StartRetryInterval = inst.StartRetryInterval
		c.StartMaxAttempts = inst.StartMaxAttempts
		c.StartMaxWait = inst.StartMaxWait
	}
	return c
}

// Run resolves the tagged instance and executes the requested operation on it.
// Nothing is attempted on the instance when resolution fails.
func (s *Service) Run(ctx context.Context, op Operation) (*Result, error) {
	if err := s.validateConfig(); err != nil {
		return nil, err
	}

	h, ok := s.handlers[op]
	if !ok {
		return nil, fmt.Errorf("unsupported operation %q", op)
	}

	instance, err := s.awsSrv.ResolveByTag(ctx, s.config.TagKey, s.config.TagValue)
	if err != nil {
		return nil, fmt.Errorf("error resolving instance %s: %w", s.config.Tag(), err)
	}
	s.logger.Debug("Resolved %s to instance %s (%s)", s.config.Tag(), instance.InstanceID, instance.State)

	report, err := h(ctx, instance)
	return &Result{Operation: op, Instance: instance, Report: report}, err
}

// Start asks AWS to start the instance. While AWS rejects the request because
// the instance is mid-transition, the call is repeated at a fixed interval until
// it is accepted, the attempt or time bound is reached, or ctx is cancelled.
// A rejection for an instance that is not transitioning is not retried.
func (s *Service) Start(ctx context.Context, instance *models.InstanceRef) error {
	if instance.State == models.PowerStateTerminated {
		return NewLifecycleError(ErrNotStartable, instance.InstanceID, "instance is terminated", nil)
	}

	attempts := 0
	operation := func() (struct{}, error) {
		attempts++
		err := s.awsSrv.StartInstance(ctx, instance.InstanceID)
		if err == nil {
			return struct{}{}, nil
		}
		if !aws.IsErrorCategory(err, aws.ErrIncorrectState) {
			return struct{}{}, backoff.Permanent(err)
		}

		state, qerr := s.currentState(ctx, instance.InstanceID)
		if qerr != nil {
			return struct{}{}, backoff.Permanent(qerr)
		}
		instance.State = state
		if !retryableStartState(state) {
			return struct{}{}, backoff.Permanent(NewLifecycleError(ErrNotStartable, instance.InstanceID,
				fmt.Sprintf("start rejected while instance is %s", state), err))
		}
		return struct{}{}, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(s.newBackOff(s.config.StartRetryInterval)),
		backoff.WithMaxElapsedTime(s.config.StartMaxWait),
		backoff.WithNotify(func(err error, wait time.Duration) {
			s.logger.Info("Instance %s is not startable yet (attempt %d), retrying in %s",
				instance.InstanceID, attempts, wait)
		}),
	}
	if s.config.StartMaxAttempts > 0 {
		opts = append(opts, backoff.WithMaxTries(uint(s.config.StartMaxAttempts)))
	}

	_, err := backoff.Retry(ctx, operation, opts...)
	if err == nil {
		s.logger.Info("Starting server")
		return nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}

	switch {
	case ctx.Err() != nil:
		return NewLifecycleError(ErrCancelled, instance.InstanceID,
			fmt.Sprintf("start aborted after %d attempt(s)", attempts), ctx.Err())
	case IsErrorCategory(err, ErrNotStartable):
		return err
	case aws.IsErrorCategory(err, aws.ErrIncorrectState):
		return NewLifecycleError(ErrRetryExhausted, instance.InstanceID,
			fmt.Sprintf("instance still not startable after %d attempt(s)", attempts), err)
	default:
		return fmt.Errorf("error starting instance %s: %w", instance.InstanceID, err)
	}
}

// currentState re-reads the power state of the instance
func (s *Service) currentState(ctx context.Context, instanceID string) (models.PowerState, error) {
	statuses, err := s.awsSrv.GetInstanceStatuses(ctx, instanceID)
	if err != nil {
		return models.PowerStateUnknown, fmt.Errorf("error re-checking state of instance %s: %w", instanceID, err)
	}
	if len(statuses) != 1 {
		return models.PowerStateUnknown, nil
	}
	return statuses[0].State, nil
}

// retryableStartState reports whether a rejected start may succeed later.
// stopped covers a transition that finished between the rejection and the re-check.
func retryableStartState(state models.PowerState) bool {
	switch state {
	case models.PowerStateStopping, models.PowerStatePending, models.PowerStateStopped:
		return true
	default:
		return false
	}
}

// Stop shuts the game down gracefully when it is running, then stops the
// instance. A failed graceful shutdown leaves the instance running. The game
// port is only checked when the instance is running or its state is unknown.
func (s *Service) Stop(ctx context.Context, instance *models.InstanceRef) error {
	running := false
	switch instance.State {
	case models.PowerStateRunning, models.PowerStateUnknown:
		var err error
		running, err = s.prober.IsGameRunning(ctx)
		if err != nil {
			return fmt.Errorf("error checking game service before stopping %s: %w", instance.InstanceID, err)
		}
	default:
		s.logger.Debug("Instance %s is %s, game service cannot be online", instance.InstanceID, instance.State)
	}

	if running {
		s.logger.Info("Game service is online, requesting graceful shutdown")
		if err := s.stopper.Stop(ctx); err != nil {
			if gamecontrol.IsErrorCategory(err, gamecontrol.ErrControlRefused) {
				s.logger.Error("Game control endpoint refused the connection although the game is online; check game_server.control_port")
			}
			return fmt.Errorf("graceful shutdown failed, instance %s was not stopped: %w", instance.InstanceID, err)
		}
	} else {
		s.logger.Debug("Game service is offline, skipping graceful shutdown")
	}

	if err := s.awsSrv.StopInstance(ctx, instance.InstanceID); err != nil {
		return fmt.Errorf("error stopping instance %s: %w", instance.InstanceID, err)
	}
	s.logger.Info("Stopping server")
	return nil
}

// Status reports the instance power state and, when it is running, whether the
// game service accepts connections.
func (s *Service) Status(ctx context.Context, instance *models.InstanceRef) (*models.StatusReport, error) {
	statuses, err := s.awsSrv.GetInstanceStatuses(ctx, instance.InstanceID)
	if err != nil {
		return nil, fmt.Errorf("error fetching status of instance %s: %w", instance.InstanceID, err)
	}

	report := &models.StatusReport{
		InstanceID: instance.InstanceID,
		Tag:        s.config.Tag(),
	}

	switch len(statuses) {
	case 0:
		report.Condition = models.ConditionOffline
		report.Message = "Server is offline"
		s.logger.Info("%s", report.Message)
		return report, nil
	case 1:
	default:
		s.logger.Warn("More than 1 instances found, something is wrong")
		return nil, NewLifecycleError(ErrAmbiguousStatus, instance.InstanceID,
			fmt.Sprintf("%d status records returned", len(statuses)), nil)
	}

	report.PowerState = statuses[0].State
	if report.PowerState != models.PowerStateRunning {
		report.Condition = models.ConditionNotRunning
		report.Message = fmt.Sprintf("Server is %s", report.PowerState)
		s.logger.Info("%s", report.Message)
		return report, nil
	}

	running, err := s.prober.IsGameRunning(ctx)
	if err != nil {
		return nil, fmt.Errorf("error checking game service on %s: %w", instance.InstanceID, err)
	}
	report.GameRunning = &running
	if running {
		report.Condition = models.ConditionOK
		report.Message = "Everything is OK. Server is running and game service is online"
	} else {
		report.Condition = models.ConditionDegraded
		report.Message = "Server is running but game service is offline"
	}
	s.logger.Info("%s", report.Message)
	return report, nil
}

// validateConfig checks if the required configuration is provided.
func (s *Service) validateConfig() error {
	if s.config.TagKey == "" || s.config.TagValue == "" {
		return fmt.Errorf("instance tag key and value are required")
	}
	if s.config.StartRetryInterval <= 0 {
		return fmt.Errorf("start retry interval must be positive")
	}
	if s.config.StartMaxAttempts <= 0 && s.config.StartMaxWait <= 0 {
		return fmt.Errorf("start retries must be bounded by attempts or total wait")
	}
	return nil
}
