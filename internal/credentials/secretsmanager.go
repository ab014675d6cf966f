package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
)

// AWS error codes worth a clearer message
const (
	ResourceNotFoundException = "ResourceNotFoundException"
	AccessDeniedException     = "AccessDeniedException"
)

// ManagerAPI is the subset of the Secrets Manager client we use
type ManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerProvider reads a JSON secret of the form
// {"username": "...", "password": "..."} from AWS Secrets Manager.
type SecretsManagerProvider struct {
	api      ManagerAPI
	secretID string
}

type secretPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewSecretsManagerProvider loads the default AWS configuration.
// An empty region keeps whatever the environment/profile selects.
func NewSecretsManagerProvider(ctx context.Context, secretID, region string) (*SecretsManagerProvider, error) {
	if secretID == "" {
		return nil, &ConfigurationError{Msg: "secret id cannot be empty"}
	}

	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, &ConfigurationError{Msg: "failed to load AWS config", Err: err}
	}

	return NewSecretsManagerProviderWithAPI(secretsmanager.NewFromConfig(cfg), secretID), nil
}

// NewSecretsManagerProviderWithAPI allows injecting the API client (for testing)
func NewSecretsManagerProviderWithAPI(api ManagerAPI, secretID string) *SecretsManagerProvider {
	return &SecretsManagerProvider{api: api, secretID: secretID}
}

// Resolve implements Provider
func (p *SecretsManagerProvider) Resolve(ctx context.Context, known Credentials) (Credentials, error) {
	if known.Complete() {
		return known, nil
	}

	out, err := p.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.secretID),
	})
	if err != nil {
		return known, &ConfigurationError{Msg: describeAPIError(p.secretID, err), Err: err}
	}
	if out.SecretString == nil {
		return known, &ConfigurationError{Msg: fmt.Sprintf("secret %s has no string value", p.secretID)}
	}

	var payload secretPayload
	if err := json.Unmarshal([]byte(*out.SecretString), &payload); err != nil {
		return known, &ConfigurationError{Msg: fmt.Sprintf("secret %s is not valid JSON", p.secretID), Err: err}
	}

	return known.merge(Credentials{Username: payload.Username, Password: payload.Password}), nil
}

func describeAPIError(secretID string, err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case ResourceNotFoundException:
			return fmt.Sprintf("secret %s not found", secretID)
		case AccessDeniedException:
			return fmt.Sprintf("access denied to secret %s", secretID)
		}
	}
	return fmt.Sprintf("failed to read secret %s", secretID)
}
