package mainconfig

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	appconfig "github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/config"
)

// LoadAWSConfig builds the SDK config for the DynamoDB payment state table.
// Static keys are used only when both halves are set; AWS_ENDPOINT_OVERRIDE
// points the client at LocalStack or DynamoDB Local.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	region := strings.TrimSpace(cfg.AWSRegion)
	if region == "" {
		return aws.Config{}, fmt.Errorf("mainconfig: AWS_REGION required for the dynamodb state backend")
	}
	if strings.TrimSpace(cfg.PaymentStateTable) == "" {
		return aws.Config{}, fmt.Errorf("mainconfig: PAYMENT_STATE_TABLE required for the dynamodb state backend")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}

	keyID, secret := strings.TrimSpace(cfg.AWSAccessKeyID), strings.TrimSpace(cfg.AWSSecretAccessKey)
	switch {
	case keyID != "" && secret != "":
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(keyID, secret, ""),
		))
	case keyID != "" || secret != "":
		return aws.Config{}, fmt.Errorf("mainconfig: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
	}

	if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
		u, err := url.Parse(endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return aws.Config{}, fmt.Errorf("mainconfig: AWS_ENDPOINT_OVERRIDE must be an absolute URL, got %q", endpoint)
		}
		opts = append(opts, config.WithBaseEndpoint(strings.TrimRight(endpoint, "/")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("mainconfig: load aws config: %w", err)
	}
	return awsCfg, nil
}
