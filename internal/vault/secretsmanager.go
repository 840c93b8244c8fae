// internal/vault/secretsmanager.go
package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"

	"github.com/healthbridge/enroll-backend/internal/config"
	"github.com/healthbridge/enroll-backend/internal/metrics"
)

// SecretsManagerVault stores payment secrets as JSON documents in AWS
// Secrets Manager, one secret per saved instrument.
type SecretsManagerVault struct {
	client  *secretsmanager.SecretsManager
	prefix  string
	timeout time.Duration
}

func NewSecretsManagerVault(cfg config.VaultConfig) (*SecretsManagerVault, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &SecretsManagerVault{
		client:  secretsmanager.New(sess),
		prefix:  cfg.SecretPrefix,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, nil
}

func (v *SecretsManagerVault) GetCardSecret(ctx context.Context, secretID string) (*CardSecret, error) {
	raw, err := v.getSecretValue(ctx, secretID)
	if err != nil || raw == nil {
		return nil, err
	}

	var secret CardSecret
	if err := json.Unmarshal(raw, &secret); err != nil {
		return nil, fmt.Errorf("malformed card secret %s: %w", secretID, err)
	}
	if secret.Number == "" {
		return nil, nil
	}
	return &secret, nil
}

func (v *SecretsManagerVault) GetBankSecret(ctx context.Context, secretID string) (*BankSecret, error) {
	raw, err := v.getSecretValue(ctx, secretID)
	if err != nil || raw == nil {
		return nil, err
	}

	var secret BankSecret
	if err := json.Unmarshal(raw, &secret); err != nil {
		return nil, fmt.Errorf("malformed bank secret %s: %w", secretID, err)
	}
	if secret.AccountNumber == "" {
		return nil, nil
	}
	return &secret, nil
}

func (v *SecretsManagerVault) getSecretValue(ctx context.Context, secretID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	out, err := v.client.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(v.secretName(secretID)),
	})
	metrics.ExternalCallDuration.WithLabelValues("vault").Observe(time.Since(start).Seconds())
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == secretsmanager.ErrCodeResourceNotFoundException {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve secret %s: %w", secretID, err)
	}

	if out.SecretString == nil {
		return nil, nil
	}
	return []byte(*out.SecretString), nil
}

func (v *SecretsManagerVault) secretName(secretID string) string {
	if v.prefix == "" {
		return secretID
	}
	return fmt.Sprintf("%s/%s", v.prefix, secretID)
}
