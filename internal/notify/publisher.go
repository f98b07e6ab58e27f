// Package notify publishes campaign lifecycle events to SNS.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"recruit-workers/internal/common/logger"
)

const EventCampaignLaunched = "campaign.launched"

// SNSAPI is the subset of the SNS client used here.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// CampaignLaunched is emitted after a campaign's assignments are committed.
type CampaignLaunched struct {
	CampaignID      string         `json:"campaignId"`
	CampaignName    string         `json:"campaignName"`
	Priority        string         `json:"priority"`
	Mode            string         `json:"mode"`
	LaunchedBy      string         `json:"launchedBy,omitempty"`
	AssignedCount   int            `json:"assignedCount"`
	UnassignedCount int            `json:"unassignedCount"`
	PerEmployee     map[string]int `json:"perEmployee"`
	LaunchedAt      time.Time      `json:"launchedAt"`
}

// Publisher sends events to a single topic.
type Publisher struct {
	client   SNSAPI
	topicARN string
	logger   logger.Logger
}

func NewPublisher(client SNSAPI, topicARN string, log logger.Logger) *Publisher {
	return &Publisher{client: client, topicARN: topicARN, logger: log}
}

// NewSNSPublisher builds a publisher from the default AWS credential chain.
func NewSNSPublisher(ctx context.Context, region, topicARN string, log logger.Logger) (*Publisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewPublisher(sns.NewFromConfig(cfg), topicARN, log), nil
}

// PublishCampaignLaunched returns the SNS message id.
func (p *Publisher) PublishCampaignLaunched(ctx context.Context, event CampaignLaunched) (string, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		Subject:  aws.String("Campaign launched: " + event.CampaignName),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventType": {DataType: aws.String("String"), StringValue: aws.String(EventCampaignLaunched)},
			"priority":  {DataType: aws.String("String"), StringValue: aws.String(event.Priority)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("sns publish to %s: %w", p.topicARN, err)
	}

	id := aws.ToString(out.MessageId)
	p.logger.Info("Campaign event published", map[string]interface{}{
		"campaignId": event.CampaignID,
		"messageId":  id,
	})
	return id, nil
}
