// Package awsx builds the aws.Config shared by the S3, DynamoDB and
// CloudWatch Logs clients. Credentials are static so the same settings work
// against MinIO, DynamoDB Local and real AWS.
package awsx

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// loadDefaultAWSConfig is a seam for tests.
var loadDefaultAWSConfig = config.LoadDefaultConfig

// Credentials are the static access settings for every AWS client.
type Credentials struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// LoadConfig returns an aws.Config for c. When no access key is given the
// default credential chain is left in place.
func LoadConfig(ctx context.Context, c Credentials) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(c.Region),
	}
	if c.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	}
	return loadDefaultAWSConfig(ctx, opts...)
}

// Endpoint returns a pointer to endpoint, or nil when it is empty so the SDK
// resolves the regional endpoint itself.
func Endpoint(endpoint string) *string {
	if endpoint == "" {
		return nil
	}
	return aws.String(endpoint)
}
