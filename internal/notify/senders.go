package notify

import (
	"context"
	"fmt"

	commonhttp "insurance-backoffice/internal/common/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// AgentSender posts the payload to the notification's target URL.
type AgentSender struct {
	client *commonhttp.Client
}

func NewAgentSender(client *commonhttp.Client) *AgentSender {
	return &AgentSender{client: client}
}

func (s *AgentSender) Send(ctx context.Context, n *Notification) error {
	if n.Target == "" {
		return fmt.Errorf("notification %s has no target", n.ID)
	}
	return s.client.PostJSON(ctx, n.Target, n.Payload, n.Timeout())
}

// SNSPublisher is the part of the SNS client used here.
type SNSPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// ClaimStatusSender publishes claim status events to an SNS topic.
type ClaimStatusSender struct {
	client   SNSPublisher
	topicARN string
}

func NewClaimStatusSender(client SNSPublisher, topicARN string) *ClaimStatusSender {
	return &ClaimStatusSender{client: client, topicARN: topicARN}
}

func (s *ClaimStatusSender) Send(ctx context.Context, n *Notification) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(string(n.Payload)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"eventType": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(n.Kind)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish claim status: %w", err)
	}
	return nil
}
