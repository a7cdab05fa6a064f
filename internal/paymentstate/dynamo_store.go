package paymentstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/booking"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/pkg/logging"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// dynamoItem mirrors the JSON layout plus the TTL attribute. DynamoDB TTL
// deletion is lazy, so Load still applies the staleness rule itself.
type dynamoItem struct {
	Namespace        string `dynamodbav:"namespace"`
	BookingID        int64  `dynamodbav:"bookingId"`
	BookingKind      string `dynamodbav:"bookingKind"`
	PaymentID        int64  `dynamodbav:"paymentId"`
	PaymentSessionID string `dynamodbav:"paymentSessionId"`
	Timestamp        int64  `dynamodbav:"timestamp"`
	ExpiresAt        int64  `dynamodbav:"expiresAt,omitempty"`
}

// DynamoStore keeps the record as one item keyed by namespace.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	key       string
	logger    *logging.Logger
}

func NewDynamoStore(client dynamoAPI, tableName, key string, logger *logging.Logger) *DynamoStore {
	if client == nil {
		panic("paymentstate: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("paymentstate: table name cannot be empty")
	}
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DynamoStore{client: client, tableName: tableName, key: key, logger: logger}
}

func (s *DynamoStore) Get(ctx context.Context) (*PendingPayment, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.itemKey(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("paymentstate: dynamodb get: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	p := PendingPayment{
		BookingID:        item.BookingID,
		BookingKind:      booking.Kind(item.BookingKind),
		PaymentID:        item.PaymentID,
		PaymentSessionID: item.PaymentSessionID,
	}
	if item.Timestamp > 0 {
		p.CreatedAt = time.UnixMilli(item.Timestamp)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &p, nil
}

func (s *DynamoStore) Set(ctx context.Context, p PendingPayment) error {
	input, err := s.putInput(p)
	if err != nil {
		return err
	}
	if _, err := s.client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("paymentstate: dynamodb put: %w", err)
	}
	return nil
}

func (s *DynamoStore) SetIfAbsent(ctx context.Context, p PendingPayment) (bool, error) {
	input, err := s.putInput(p)
	if err != nil {
		return false, err
	}
	input.ConditionExpression = aws.String("attribute_not_exists(#ns)")
	input.ExpressionAttributeNames = map[string]string{"#ns": "namespace"}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			s.logger.Debug("pending payment slot already taken", "namespace", s.key)
			return false, nil
		}
		return false, fmt.Errorf("paymentstate: dynamodb conditional put: %w", err)
	}
	return true, nil
}

func (s *DynamoStore) Clear(ctx context.Context) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.itemKey(),
	}); err != nil {
		return fmt.Errorf("paymentstate: dynamodb delete: %w", err)
	}
	return nil
}

func (s *DynamoStore) putInput(p PendingPayment) (*dynamodb.PutItemInput, error) {
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("paymentstate: invalid record: %w", err)
	}
	item, err := attributevalue.MarshalMap(dynamoItem{
		Namespace:        s.key,
		BookingID:        p.BookingID,
		BookingKind:      string(p.BookingKind),
		PaymentID:        p.PaymentID,
		PaymentSessionID: p.PaymentSessionID,
		Timestamp:        p.CreatedAt.UnixMilli(),
		ExpiresAt:        p.CreatedAt.Add(MaxAge).Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("paymentstate: marshal item: %w", err)
	}
	return &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}, nil
}

func (s *DynamoStore) itemKey() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"namespace": &types.AttributeValueMemberS{Value: s.key},
	}
}
