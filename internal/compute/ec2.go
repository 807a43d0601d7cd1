package compute

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// LaunchSpec describes the single instance a launch request creates.
type LaunchSpec struct {
	ImageID         string
	InstanceType    string
	InstanceProfile string
	KeyName         string // optional
	UserData        string // plain text; encoded on the wire by the launcher
	Tags            map[string]string
}

// InstanceLauncher creates and destroys compute instances. The launcher
// issues exactly one create call per upload event; termination is owned
// by the instance itself once the run pipeline concludes.
type InstanceLauncher interface {
	Launch(ctx context.Context, spec LaunchSpec) (string, error)
	Terminate(ctx context.Context, instanceID string) error
}

type ec2Launcher struct {
	client *ec2.Client
}

// NewEC2Launcher builds an InstanceLauncher for the given region using
// the default credential chain.
func NewEC2Launcher(ctx context.Context, region string) (InstanceLauncher, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &ec2Launcher{client: ec2.NewFromConfig(awsCfg)}, nil
}

func (l *ec2Launcher) Launch(ctx context.Context, spec LaunchSpec) (string, error) {
	input := &ec2.RunInstancesInput{
		ImageId:      aws.String(spec.ImageID),
		InstanceType: ec2types.InstanceType(spec.InstanceType),
		IamInstanceProfile: &ec2types.IamInstanceProfileSpecification{
			Name: aws.String(spec.InstanceProfile),
		},
		UserData: aws.String(base64.StdEncoding.EncodeToString([]byte(spec.UserData))),
		MinCount: aws.Int32(1),
		MaxCount: aws.Int32(1),
	}
	if spec.KeyName != "" {
		input.KeyName = aws.String(spec.KeyName)
	}
	if len(spec.Tags) > 0 {
		tagSpec := ec2types.TagSpecification{
			ResourceType: ec2types.ResourceTypeInstance,
		}
		for k, v := range spec.Tags {
			tagSpec.Tags = append(tagSpec.Tags, ec2types.Tag{
				Key:   aws.String(k),
				Value: aws.String(v),
			})
		}
		input.TagSpecifications = []ec2types.TagSpecification{tagSpec}
	}

	out, err := l.client.RunInstances(ctx, input)
	if err != nil {
		return "", fmt.Errorf("run instances: %w", err)
	}
	if len(out.Instances) == 0 || out.Instances[0].InstanceId == nil {
		return "", fmt.Errorf("run instances returned no instance")
	}
	return *out.Instances[0].InstanceId, nil
}

func (l *ec2Launcher) Terminate(ctx context.Context, instanceID string) error {
	_, err := l.client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return fmt.Errorf("terminate %s: %w", instanceID, err)
	}
	return nil
}

// SelfInstanceID resolves the ID of the instance this process runs on
// via the instance metadata service.
func SelfInstanceID(ctx context.Context) (string, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("unable to load SDK config: %w", err)
	}
	client := imds.NewFromConfig(awsCfg)
	doc, err := client.GetInstanceIdentityDocument(ctx, &imds.GetInstanceIdentityDocumentInput{})
	if err != nil {
		return "", fmt.Errorf("instance metadata: %w", err)
	}
	return doc.InstanceID, nil
}
