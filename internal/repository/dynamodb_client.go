package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/b2bflow/front-forms/internal/domain"
)

const (
	skPrefixMsg = "MSG#"
	skState     = "STATE#"
	ttlDuration = 30 * 24 * time.Hour // 30-day TTL
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Client stores conversations in a single DynamoDB table. Each conversation
// is one STATE# item plus one MSG# item per transcript entry.
type Client struct {
	api       dynamodbAPI
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

type Option func(*Client)

// WithTTL sets how long an idle conversation is kept.
func WithTTL(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	c := &Client{api: api, tableName: tableName, ttl: ttlDuration, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type stateItem struct {
	PK             string `dynamodbav:"PK"`
	SK             string `dynamodbav:"SK"`
	ConversationID string `dynamodbav:"conversationId"`
	Step           string `dynamodbav:"step"`
	Version        int    `dynamodbav:"version"`
	State          string `dynamodbav:"state"`
	UpdatedAt      string `dynamodbav:"updatedAt"`
	TTL            int64  `dynamodbav:"ttl"`
}

type messageItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Key       string `dynamodbav:"key"`
	Seq       int    `dynamodbav:"seq"`
	Text      string `dynamodbav:"text"`
	Speaker   string `dynamodbav:"speaker"`
	DelayMs   int64  `dynamodbav:"delayMs"`
	CreatedAt string `dynamodbav:"createdAt"`
	TTL       int64  `dynamodbav:"ttl"`
}

// convPK returns the DynamoDB partition key for a conversation.
func convPK(conversationID string) string {
	return "CONV#" + conversationID
}

// msgSK zero-pads the sequence so the sort key orders the transcript.
func msgSK(seq int) string {
	return fmt.Sprintf("%s%08d", skPrefixMsg, seq)
}

// Create writes a new conversation. It fails with ErrVersionConflict if the
// id is already taken.
func (c *Client) Create(ctx context.Context, conv domain.Conversation) error {
	state, err := c.stateItem(conv)
	if err != nil {
		return fmt.Errorf("repository: Create: %w", err)
	}
	items := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName:           aws.String(c.tableName),
			Item:                state,
			ConditionExpression: aws.String("attribute_not_exists(PK)"),
		},
	}}
	msgs, err := c.messagePuts(conv.ID, conv.Transcript)
	if err != nil {
		return fmt.Errorf("repository: Create: %w", err)
	}
	if err := c.write(ctx, append(items, msgs...)); err != nil {
		return fmt.Errorf("repository: Create: %w", err)
	}
	return nil
}

// Save replaces the state item if the stored version is conv.Version-1 and
// adds the appended messages in the same transaction.
func (c *Client) Save(ctx context.Context, conv domain.Conversation, appended []domain.Message) error {
	state, err := c.stateItem(conv)
	if err != nil {
		return fmt.Errorf("repository: Save: %w", err)
	}
	items := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName:           aws.String(c.tableName),
			Item:                state,
			ConditionExpression: aws.String("attribute_exists(PK) AND version = :expected"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":expected": &types.AttributeValueMemberN{Value: strconv.Itoa(conv.Version - 1)},
			},
		},
	}}
	msgs, err := c.messagePuts(conv.ID, appended)
	if err != nil {
		return fmt.Errorf("repository: Save: %w", err)
	}
	if err := c.write(ctx, append(items, msgs...)); err != nil {
		return fmt.Errorf("repository: Save: %w", err)
	}
	return nil
}

// Load reads the state item and the full transcript of a conversation.
func (c *Client) Load(ctx context.Context, id string) (domain.Conversation, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: convPK(id)},
			"SK": &types.AttributeValueMemberS{Value: skState},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("repository: Load get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Conversation{}, domain.ErrConversationNotFound
	}

	var item stateItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return domain.Conversation{}, fmt.Errorf("repository: Load decode state: %w", err)
	}
	var conv domain.Conversation
	if err := json.Unmarshal([]byte(item.State), &conv); err != nil {
		return domain.Conversation{}, fmt.Errorf("repository: Load decode state: %w", err)
	}
	conv.Version = item.Version

	conv.Transcript, err = c.transcript(ctx, id)
	if err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

// transcript queries all MSG# items for a conversation in sequence order.
func (c *Client) transcript(ctx context.Context, id string) ([]domain.Message, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: convPK(id)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixMsg},
		},
		ScanIndexForward: aws.Bool(true),
		ConsistentRead:   aws.Bool(true),
	}

	var msgs []domain.Message
	for {
		out, err := c.api.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("repository: transcript query: %w", err)
		}
		var items []messageItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, fmt.Errorf("repository: transcript unmarshal: %w", err)
		}
		for _, item := range items {
			msgs = append(msgs, item.message())
		}
		if len(out.LastEvaluatedKey) == 0 {
			return msgs, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (c *Client) write(ctx context.Context, items []types.TransactWriteItem) error {
	_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err == nil {
		return nil
	}
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
				return fmt.Errorf("%w: %v", domain.ErrVersionConflict, err)
			}
		}
	}
	return err
}

func (c *Client) stateItem(conv domain.Conversation) (map[string]types.AttributeValue, error) {
	state, err := json.Marshal(conv)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	now := c.now().UTC()
	return attributevalue.MarshalMap(stateItem{
		PK:             convPK(conv.ID),
		SK:             skState,
		ConversationID: conv.ID,
		Step:           string(conv.Step),
		Version:        conv.Version,
		State:          string(state),
		UpdatedAt:      now.Format(time.RFC3339),
		TTL:            now.Add(c.ttl).Unix(),
	})
}

// messagePuts builds one insert-only put per message. MSG# items are never
// overwritten.
func (c *Client) messagePuts(id string, msgs []domain.Message) ([]types.TransactWriteItem, error) {
	ttl := c.now().Add(c.ttl).Unix()
	puts := make([]types.TransactWriteItem, 0, len(msgs))
	for _, m := range msgs {
		item, err := attributevalue.MarshalMap(messageItem{
			PK:        convPK(id),
			SK:        msgSK(m.Seq),
			Key:       m.Key,
			Seq:       m.Seq,
			Text:      m.Text,
			Speaker:   string(m.Speaker),
			DelayMs:   m.Delay.Milliseconds(),
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339Nano),
			TTL:       ttl,
		})
		if err != nil {
			return nil, fmt.Errorf("encode message %d: %w", m.Seq, err)
		}
		puts = append(puts, types.TransactWriteItem{Put: &types.Put{
			TableName:           aws.String(c.tableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(SK)"),
		}})
	}
	return puts, nil
}

func (m messageItem) message() domain.Message {
	created, _ := time.Parse(time.RFC3339Nano, m.CreatedAt)
	return domain.Message{
		Key:       m.Key,
		Seq:       m.Seq,
		Text:      m.Text,
		Speaker:   domain.Speaker(m.Speaker),
		Delay:     time.Duration(m.DelayMs) * time.Millisecond,
		CreatedAt: created,
	}
}
