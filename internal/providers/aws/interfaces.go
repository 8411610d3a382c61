package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"gameserverctl/internal/models"
)

// EC2ClientAPI defines the interface for EC2 operations we need to mock
//
//go:generate mockery --name=EC2ClientAPI --output=./mocks
type EC2ClientAPI interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeInstanceStatus(ctx context.Context, params *ec2.DescribeInstanceStatusInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstanceStatusOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
}

// InstanceServiceAPI defines the interface for instance operations
//
//go:generate mockery --name=InstanceServiceAPI --output=./mocks
type InstanceServiceAPI interface {
	ResolveByTag(ctx context.Context, tagKey, tagValue string) (*models.InstanceRef, error)
	StartInstance(ctx context.Context, instanceID string) error
	StopInstance(ctx context.Context, instanceID string) error
	GetInstanceStatuses(ctx context.Context, instanceID string) ([]models.InstanceStatus, error)
}
