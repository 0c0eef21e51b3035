package push

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"event-rsvp-backend/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	created   []*sns.CreatePlatformEndpointInput
	attrs     []*sns.SetEndpointAttributesInput
	deleted   []string
	published []*sns.PublishInput

	createErr  error
	deleteErr  error
	publishErr error
}

func (f *fakeSNS) CreatePlatformEndpoint(_ context.Context, in *sns.CreatePlatformEndpointInput, _ ...func(*sns.Options)) (*sns.CreatePlatformEndpointOutput, error) {
	f.created = append(f.created, in)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &sns.CreatePlatformEndpointOutput{
		EndpointArn: aws.String("arn:aws:sns:us-east-1:123:endpoint/APNS/app/" + aws.ToString(in.Token)),
	}, nil
}

func (f *fakeSNS) SetEndpointAttributes(_ context.Context, in *sns.SetEndpointAttributesInput, _ ...func(*sns.Options)) (*sns.SetEndpointAttributesOutput, error) {
	f.attrs = append(f.attrs, in)
	return &sns.SetEndpointAttributesOutput{}, nil
}

func (f *fakeSNS) DeleteEndpoint(_ context.Context, in *sns.DeleteEndpointInput, _ ...func(*sns.Options)) (*sns.DeleteEndpointOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.EndpointArn))
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &sns.DeleteEndpointOutput{}, nil
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.published = append(f.published, in)
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	return &sns.PublishOutput{MessageId: aws.String("m1")}, nil
}

func newTestSNS(client *fakeSNS) *SNSProvider {
	return NewSNSProvider(client, map[models.Platform]string{
		models.PlatformIOS:     "arn:aws:sns:us-east-1:123:app/APNS/app",
		models.PlatformAndroid: "arn:aws:sns:us-east-1:123:app/GCM/app",
	})
}

func TestSNSProvider_CreateEndpoint(t *testing.T) {
	client := &fakeSNS{}
	p := newTestSNS(client)

	handle, err := p.CreateEndpoint(context.Background(), "t1", models.PlatformIOS, "user-1")
	require.NoError(t, err)
	assert.True(t, p.Owns(handle))

	require.Len(t, client.created, 1)
	assert.Equal(t, "arn:aws:sns:us-east-1:123:app/APNS/app", aws.ToString(client.created[0].PlatformApplicationArn))
	assert.Equal(t, "t1", aws.ToString(client.created[0].Token))
	assert.Equal(t, "user-1", aws.ToString(client.created[0].CustomUserData))
}

func TestSNSProvider_CreateEndpointUnknownPlatform(t *testing.T) {
	client := &fakeSNS{}
	p := newTestSNS(client)

	_, err := p.CreateEndpoint(context.Background(), "t1", models.PlatformWeb, "user-1")
	require.ErrorIs(t, err, ErrNoProvider)
	assert.Empty(t, client.created)
}

func TestSNSProvider_RotateEndpointToken(t *testing.T) {
	client := &fakeSNS{}
	p := newTestSNS(client)

	require.NoError(t, p.RotateEndpointToken(context.Background(), "arn:aws:sns:x:endpoint/a", "t2"))
	require.Len(t, client.attrs, 1)
	assert.Equal(t, "t2", client.attrs[0].Attributes["Token"])
	assert.Equal(t, "true", client.attrs[0].Attributes["Enabled"])
}

func TestSNSProvider_DeleteEndpointIdempotent(t *testing.T) {
	client := &fakeSNS{deleteErr: &types.NotFoundException{Message: aws.String("gone")}}
	p := newTestSNS(client)

	assert.NoError(t, p.DeleteEndpoint(context.Background(), "arn:aws:sns:x:endpoint/a"))

	client.deleteErr = errors.New("throttled")
	assert.Error(t, p.DeleteEndpoint(context.Background(), "arn:aws:sns:x:endpoint/a"))
}

func TestSNSProvider_Send(t *testing.T) {
	client := &fakeSNS{}
	p := newTestSNS(client)

	err := p.Send(context.Background(), "arn:aws:sns:x:endpoint/a", Message{Title: "Party", Body: "hello"})
	require.NoError(t, err)
	require.Len(t, client.published, 1)

	in := client.published[0]
	assert.Equal(t, "json", aws.ToString(in.MessageStructure))

	var envelope map[string]string
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.Message)), &envelope))
	assert.Equal(t, "hello", envelope["default"])
	assert.Contains(t, envelope["APNS"], `"body":"hello"`)
	assert.Contains(t, envelope["GCM"], `"title":"Party"`)
}

func TestSNSProvider_SendDisabledEndpoint(t *testing.T) {
	client := &fakeSNS{publishErr: &types.EndpointDisabledException{Message: aws.String("disabled")}}
	p := newTestSNS(client)

	err := p.Send(context.Background(), "arn:aws:sns:x:endpoint/a", Message{Body: "hello"})
	assert.ErrorIs(t, err, ErrEndpointGone)
}
