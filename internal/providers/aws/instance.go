package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"gameserverctl/internal/models"
)

// SessionConfig holds what is needed to build an EC2 client.
// Static keys take precedence over Profile when both are set.
type SessionConfig struct {
	Region          string
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// InstanceService handles interactions with AWS EC2 instances
type InstanceService struct {
	client EC2ClientAPI
}

// NewInstanceServiceFromConfig creates a new InstanceService from the given session settings
func NewInstanceServiceFromConfig(ctx context.Context, sc SessionConfig) (*InstanceService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, loadOptions(sc)...)
	if err != nil {
		return nil, ClassifyAWSError(fmt.Errorf("unable to load AWS SDK config: %w", err), EC2ResourceType, "")
	}

	return NewInstanceServiceWithClient(ec2.NewFromConfig(cfg)), nil
}

func loadOptions(sc SessionConfig) []func(*config.LoadOptions) error {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(sc.Region),
	}
	switch {
	case sc.AccessKeyID != "":
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(sc.AccessKeyID, sc.SecretAccessKey, sc.SessionToken),
		))
	case sc.Profile != "":
		opts = append(opts, config.WithSharedConfigProfile(sc.Profile))
	}
	return opts
}

// NewInstanceServiceWithClient creates a new InstanceService with a provided client
func NewInstanceServiceWithClient(client EC2ClientAPI) *InstanceService {
	return &InstanceService{
		client: client,
	}
}

// ResolveByTag finds the one instance carrying tagKey=tagValue. Zero matches
// and more than one match are both errors; neither is retried.
func (s *InstanceService) ResolveByTag(ctx context.Context, tagKey, tagValue string) (*models.InstanceRef, error) {
	tag := fmt.Sprintf("%s=%s", tagKey, tagValue)
	input := &ec2.DescribeInstancesInput{
		Filters: []types.Filter{
			{
				Name:   aws.String("tag:" + tagKey),
				Values: []string{tagValue},
			},
		},
	}

	var matches []types.Instance
	for {
		resp, err := s.client.DescribeInstances(ctx, input)
		if err != nil {
			return nil, ClassifyAWSError(err, EC2ResourceType, tag)
		}
		for _, reservation := range resp.Reservations {
			matches = append(matches, reservation.Instances...)
		}
		if aws.ToString(resp.NextToken) == "" {
			break
		}
		input.NextToken = resp.NextToken
	}

	switch len(matches) {
	case 0:
		return nil, NewAWSError(ErrResourceNotFound, EC2ResourceType, tag,
			"no instance found with the configured tag", nil)
	case 1:
	default:
		ids := make([]string, len(matches))
		for i, inst := range matches {
			ids[i] = aws.ToString(inst.InstanceId)
		}
		return nil, NewAWSError(ErrAmbiguousMatch, EC2ResourceType, tag,
			fmt.Sprintf("%d instances share the configured tag: %v", len(matches), ids), nil)
	}

	instance := matches[0]
	ref := &models.InstanceRef{
		InstanceID: aws.ToString(instance.InstanceId),
		State:      models.PowerStateUnknown,
	}
	if instance.State != nil {
		ref.State = models.ParsePowerState(string(instance.State.Name))
	}
	return ref, nil
}

// StartInstance asks EC2 to start the instance. Acceptance only means the
// request was taken, not that the instance is up.
func (s *InstanceService) StartInstance(ctx context.Context, instanceID string) error {
	_, err := s.client.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return ClassifyAWSError(err, EC2ResourceType, instanceID)
	}
	return nil
}

// StopInstance asks EC2 to stop the instance.
func (s *InstanceService) StopInstance(ctx context.Context, instanceID string) error {
	_, err := s.client.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return ClassifyAWSError(err, EC2ResourceType, instanceID)
	}
	return nil
}

// GetInstanceStatuses returns every status record AWS holds for the instance,
// including instances that are not running.
func (s *InstanceService) GetInstanceStatuses(ctx context.Context, instanceID string) ([]models.InstanceStatus, error) {
	resp, err := s.client.DescribeInstanceStatus(ctx, &ec2.DescribeInstanceStatusInput{
		InstanceIds:         []string{instanceID},
		IncludeAllInstances: aws.Bool(true),
	})
	if err != nil {
		return nil, ClassifyAWSError(err, EC2ResourceType, instanceID)
	}

	statuses := make([]models.InstanceStatus, 0, len(resp.InstanceStatuses))
	for _, st := range resp.InstanceStatuses {
		status := models.InstanceStatus{
			InstanceID: aws.ToString(st.InstanceId),
			State:      models.PowerStateUnknown,
		}
		if st.InstanceState != nil {
			status.State = models.ParsePowerState(string(st.InstanceState.Name))
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
