// Package outcomes ingests delivery outcome events from an SQS queue and
// feeds them into the send log. Providers post bounce, complaint, and
// delivery notifications here when webhooks are not an option.
package outcomes

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/send-governor/internal/domain"
	"github.com/ignite/send-governor/internal/pkg/logger"
	"github.com/ignite/send-governor/internal/sendlog"
)

// Event is the wire shape of one delivery outcome notification.
type Event struct {
	AccountID     string    `json:"account_id"`
	RecipientHash string    `json:"recipient_hash"`
	Outcome       string    `json:"outcome"`
	Timestamp     time.Time `json:"timestamp"`
}

// Consumer long-polls an SQS queue and records each outcome against the
// send log. Delivery is at-least-once; replays are absorbed because
// recording an outcome twice reports ErrAttemptNotFound, which deletes
// the message instead of failing it.
type Consumer struct {
	sqsClient *sqs.Client
	queueURL  string
	log       *sendlog.Service
	done      chan struct{}
}

// NewConsumer creates an outcome consumer for the given queue.
func NewConsumer(sqsClient *sqs.Client, queueURL string, log *sendlog.Service) *Consumer {
	return &Consumer{
		sqsClient: sqsClient,
		queueURL:  queueURL,
		log:       log,
		done:      make(chan struct{}),
	}
}

// Start begins polling in the background until ctx is cancelled or Stop
// is called.
func (c *Consumer) Start(ctx context.Context) {
	logger.Info("outcome consumer started", "queue", c.queueURL)
	go c.poll(ctx)
}

// Stop ends polling.
func (c *Consumer) Stop() {
	close(c.done)
}

func (c *Consumer) poll(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		out, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("sqs receive failed", "error", err.Error())
			time.Sleep(5 * time.Second)
			continue
		}

		for _, msg := range out.Messages {
			var evt Event
			if err := json.Unmarshal([]byte(*msg.Body), &evt); err != nil {
				logger.Warn("dropping malformed outcome message", "error", err.Error())
				c.deleteMessage(ctx, msg.ReceiptHandle)
				continue
			}

			if err := c.processEvent(ctx, evt); err != nil {
				logger.Error("outcome event failed, leaving for redelivery",
					"account_id", evt.AccountID, "outcome", evt.Outcome, "error", err.Error())
				continue
			}

			c.deleteMessage(ctx, msg.ReceiptHandle)
		}
	}
}

func (c *Consumer) deleteMessage(ctx context.Context, handle *string) {
	c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: handle,
	})
}

func (c *Consumer) processEvent(ctx context.Context, evt Event) error {
	outcome := domain.Outcome(evt.Outcome)
	if !outcome.Terminal() {
		logger.Warn("dropping outcome event with non-terminal outcome",
			"account_id", evt.AccountID, "outcome", evt.Outcome)
		return nil
	}

	at := evt.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}

	err := c.log.RecordOutcome(ctx, evt.AccountID, evt.RecipientHash, outcome, at)
	if errors.Is(err, sendlog.ErrAttemptNotFound) {
		// Already recorded, or the attempt was never logged here. Either
		// way redelivery cannot help.
		logger.Warn("no pending attempt for outcome event",
			"account_id", evt.AccountID, "outcome", evt.Outcome)
		return nil
	}
	return err
}
