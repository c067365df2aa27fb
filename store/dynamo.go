package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
// *dynamodb.Client satisfies it.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type dynamoStore struct {
	api   DynamoAPI
	table TableConfig
}

// NewDynamoStore creates a Store over one DynamoDB table. Query on the
// partition key uses the table itself, Query on the configured index
// attribute uses the "<table>-index" GSI, and any other attribute falls
// back to a filtered scan.
func NewDynamoStore(api DynamoAPI, table TableConfig) Store {
	return &dynamoStore{api: api, table: table}
}

func (s *dynamoStore) Get(ctx context.Context, key Key) (Record, error) {
	k := map[string]types.AttributeValue{
		s.table.Key: &types.AttributeValueMemberS{Value: key.Partition},
	}
	if s.table.Sort != "" {
		k[s.table.Sort] = &types.AttributeValueMemberS{Value: key.Sort}
	}

	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table.Name),
		Key:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, s.table.Name, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	return decode(out.Item)
}

func (s *dynamoStore) Put(ctx context.Context, rec Record) error {
	if _, err := keyOf(s.table, rec); err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(map[string]any(rec))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, s.table.Name, err)
	}

	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table.Name),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, s.table.Name, err)
	}
	return nil
}

func (s *dynamoStore) Query(ctx context.Context, attr, value string) ([]Record, error) {
	in := &dynamodb.QueryInput{
		TableName:                aws.String(s.table.Name),
		KeyConditionExpression:   aws.String("#k = :v"),
		ExpressionAttributeNames: map[string]string{"#k": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
	}

	switch {
	case attr == s.table.Key:
	case s.table.Index != "" && attr == s.table.Index:
		in.IndexName = aws.String(s.table.IndexName())
	default:
		return s.scan(ctx, attr, value)
	}

	var out []Record
	pages := dynamodb.NewQueryPaginator(s.api, in)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, s.table.Name, err)
		}
		recs, err := decodeAll(page.Items)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func (s *dynamoStore) Scan(ctx context.Context) ([]Record, error) {
	return s.scan(ctx, "", "")
}

func (s *dynamoStore) scan(ctx context.Context, attr, value string) ([]Record, error) {
	in := &dynamodb.ScanInput{TableName: aws.String(s.table.Name)}
	if attr != "" {
		in.FilterExpression = aws.String("#a = :v")
		in.ExpressionAttributeNames = map[string]string{"#a": attr}
		in.ExpressionAttributeValues = map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		}
	}

	var out []Record
	pages := dynamodb.NewScanPaginator(s.api, in)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, s.table.Name, err)
		}
		recs, err := decodeAll(page.Items)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func decode(item map[string]types.AttributeValue) (Record, error) {
	var rec Record
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	return rec, nil
}

func decodeAll(items []map[string]types.AttributeValue) ([]Record, error) {
	out := make([]Record, 0, len(items))
	for _, item := range items {
		rec, err := decode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
