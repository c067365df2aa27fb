package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/tailored-agentic-units/callcenter/store"
)

// fakeDynamo is an in-memory DynamoAPI. It evaluates the single-equality
// key conditions and filters that DynamoStore issues.
type fakeDynamo struct {
	mu      sync.Mutex
	items   []map[string]types.AttributeValue
	indexes []string
	err     error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{}
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	for _, item := range f.items {
		if matchAll(item, in.Key) {
			return &dynamodb.GetItemOutput{Item: item}, nil
		}
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	// Items are identified by the key attributes of the test tables.
	for i, item := range f.items {
		if sameKey(item, in.Item) {
			f.items[i] = in.Item
			return &dynamodb.PutItemOutput{}, nil
		}
	}
	f.items = append(f.items, in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if in.IndexName != nil {
		f.indexes = append(f.indexes, aws.ToString(in.IndexName))
	}

	attr := in.ExpressionAttributeNames["#k"]
	out := f.filter(attr, in.ExpressionAttributeValues[":v"])
	return &dynamodb.QueryOutput{Items: out, Count: int32(len(out))}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if in.FilterExpression == nil {
		return &dynamodb.ScanOutput{Items: f.items}, nil
	}

	attr := in.ExpressionAttributeNames["#a"]
	return &dynamodb.ScanOutput{Items: f.filter(attr, in.ExpressionAttributeValues[":v"])}, nil
}

func (f *fakeDynamo) filter(attr string, want types.AttributeValue) []map[string]types.AttributeValue {
	var out []map[string]types.AttributeValue
	for _, item := range f.items {
		if equalS(item[attr], want) {
			out = append(out, item)
		}
	}
	return out
}

func matchAll(item, key map[string]types.AttributeValue) bool {
	for k, v := range key {
		if !equalS(item[k], v) {
			return false
		}
	}
	return true
}

func sameKey(a, b map[string]types.AttributeValue) bool {
	for _, k := range []string{"phone_number", "frequentFlyerNumber", "bookingReference"} {
		if _, ok := b[k]; ok && !equalS(a[k], b[k]) {
			return false
		}
	}
	return true
}

func equalS(a, b types.AttributeValue) bool {
	as, ok1 := a.(*types.AttributeValueMemberS)
	bs, ok2 := b.(*types.AttributeValueMemberS)
	return ok1 && ok2 && as.Value == bs.Value
}

func TestDynamoStore_IndexQuery(t *testing.T) {
	api := newFakeDynamo()
	s := store.NewDynamoStore(api, flights)
	ctx := context.Background()

	s.Put(ctx, store.Record{"frequentFlyerNumber": "FF1", "bookingReference": "ABC123"})

	if _, err := s.Query(ctx, "bookingReference", "ABC123"); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if _, err := s.Query(ctx, "frequentFlyerNumber", "FF1"); err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if len(api.indexes) != 1 || api.indexes[0] != "flights-index" {
		t.Errorf("got index queries %v, want [flights-index]", api.indexes)
	}
}

func TestDynamoStore_NumbersDecode(t *testing.T) {
	api := newFakeDynamo()
	s := store.NewDynamoStore(api, customers)
	ctx := context.Background()

	if err := s.Put(ctx, store.Record{"phone_number": "1", "balance": 12.5, "active": true}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Get(ctx, store.Key{Partition: "1"})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v, ok := got["balance"].(float64); !ok || v != 12.5 {
		t.Errorf("got balance %#v, want 12.5", got["balance"])
	}
	if v, ok := got["active"].(bool); !ok || !v {
		t.Errorf("got active %#v, want true", got["active"])
	}
}

func TestDynamoStore_Errors(t *testing.T) {
	api := newFakeDynamo()
	api.err = errors.New("throttled")
	s := store.NewDynamoStore(api, customers)
	ctx := context.Background()

	if _, err := s.Get(ctx, store.Key{Partition: "1"}); !errors.Is(err, store.ErrLoadFailed) {
		t.Errorf("Get: got %v, want ErrLoadFailed", err)
	}
	if err := s.Put(ctx, store.Record{"phone_number": "1"}); !errors.Is(err, store.ErrSaveFailed) {
		t.Errorf("Put: got %v, want ErrSaveFailed", err)
	}
	if _, err := s.Query(ctx, "phone_number", "1"); !errors.Is(err, store.ErrLoadFailed) {
		t.Errorf("Query: got %v, want ErrLoadFailed", err)
	}
	if _, err := s.Scan(ctx); !errors.Is(err, store.ErrLoadFailed) {
		t.Errorf("Scan: got %v, want ErrLoadFailed", err)
	}
}
