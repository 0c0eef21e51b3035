package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"event-rsvp-backend/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the subset of the SNS client used by SNSProvider
type SNSAPI interface {
	CreatePlatformEndpoint(ctx context.Context, params *sns.CreatePlatformEndpointInput, optFns ...func(*sns.Options)) (*sns.CreatePlatformEndpointOutput, error)
	SetEndpointAttributes(ctx context.Context, params *sns.SetEndpointAttributesInput, optFns ...func(*sns.Options)) (*sns.SetEndpointAttributesOutput, error)
	DeleteEndpoint(ctx context.Context, params *sns.DeleteEndpointInput, optFns ...func(*sns.Options)) (*sns.DeleteEndpointOutput, error)
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSProvider manages Amazon SNS platform endpoints for mobile devices
type SNSProvider struct {
	client SNSAPI
	apps   map[models.Platform]string
}

// NewSNSProvider creates a provider. apps maps a platform to its SNS
// platform application ARN.
func NewSNSProvider(client SNSAPI, apps map[models.Platform]string) *SNSProvider {
	return &SNSProvider{client: client, apps: apps}
}

// NewSNSClient builds an SNS client from the default AWS config chain
func NewSNSClient(cfg aws.Config) *sns.Client {
	return sns.NewFromConfig(cfg)
}

func (p *SNSProvider) Name() string { return "sns" }

// Owns reports whether handle is an SNS endpoint ARN
func (p *SNSProvider) Owns(handle string) bool {
	return strings.HasPrefix(handle, "arn:") && strings.Contains(handle, ":endpoint/")
}

// CreateEndpoint registers the token under the platform application
func (p *SNSProvider) CreateEndpoint(ctx context.Context, token string, platform models.Platform, ownerID string) (string, error) {
	appARN, ok := p.apps[platform]
	if !ok || appARN == "" {
		return "", fmt.Errorf("%w: sns application for platform %q", ErrNoProvider, platform)
	}

	out, err := p.client.CreatePlatformEndpoint(ctx, &sns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(appARN),
		Token:                  aws.String(token),
		CustomUserData:         aws.String(ownerID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create platform endpoint: %w", err)
	}
	return aws.ToString(out.EndpointArn), nil
}

// RotateEndpointToken replaces the token of an existing endpoint and re-enables it
func (p *SNSProvider) RotateEndpointToken(ctx context.Context, handle, token string) error {
	_, err := p.client.SetEndpointAttributes(ctx, &sns.SetEndpointAttributesInput{
		EndpointArn: aws.String(handle),
		Attributes: map[string]string{
			"Token":   token,
			"Enabled": "true",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to set endpoint attributes: %w", err)
	}
	return nil
}

// DeleteEndpoint removes the endpoint. SNS treats unknown endpoints as deleted.
func (p *SNSProvider) DeleteEndpoint(ctx context.Context, handle string) error {
	_, err := p.client.DeleteEndpoint(ctx, &sns.DeleteEndpointInput{
		EndpointArn: aws.String(handle),
	})
	if err != nil {
		var notFound *types.NotFoundException
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to delete endpoint: %w", err)
	}
	return nil
}

// Send publishes a platform-specific JSON message to the endpoint
func (p *SNSProvider) Send(ctx context.Context, handle string, msg Message) error {
	body, err := snsMessage(msg)
	if err != nil {
		return err
	}

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TargetArn:        aws.String(handle),
		Message:          aws.String(body),
		MessageStructure: aws.String("json"),
	})
	if err != nil {
		var disabled *types.EndpointDisabledException
		if errors.As(err, &disabled) {
			return fmt.Errorf("%w: %s", ErrEndpointGone, handle)
		}
		return fmt.Errorf("failed to publish: %w", err)
	}
	return nil
}

// snsMessage renders the per-transport payloads SNS expects with
// MessageStructure=json. Each value is itself a JSON string.
func snsMessage(msg Message) (string, error) {
	apns, err := json.Marshal(map[string]any{
		"aps": map[string]any{
			"alert": map[string]string{"title": msg.Title, "body": msg.Body},
			"sound": "default",
		},
		"data": msg.Data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal apns payload: %w", err)
	}

	gcm, err := json.Marshal(map[string]any{
		"notification": map[string]string{"title": msg.Title, "body": msg.Body},
		"data":         msg.Data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal gcm payload: %w", err)
	}

	out, err := json.Marshal(map[string]string{
		"default":      msg.Body,
		"APNS":         string(apns),
		"APNS_SANDBOX": string(apns),
		"GCM":          string(gcm),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal sns message: %w", err)
	}
	return string(out), nil
}
