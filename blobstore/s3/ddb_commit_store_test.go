package s3

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDDBClient is an in-memory DynamoDB substitute covering the commit
// store's conditional-write semantics.
type mockDDBClient struct {
	mu    sync.RWMutex
	items map[string]map[string]types.AttributeValue
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{
		items: make(map[string]map[string]types.AttributeValue),
	}
}

func (m *mockDDBClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	baseURI := params.Item["base_uri"].(*types.AttributeValueMemberS).Value
	version := params.Item["version"].(*types.AttributeValueMemberN).Value
	key := baseURI + ":" + version

	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(version)" {
		if _, exists := m.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}

	m.items[key] = params.Item

	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	baseURI := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value

	var items []map[string]types.AttributeValue

	for _, item := range m.items {
		if item["base_uri"].(*types.AttributeValueMemberS).Value == baseURI {
			items = append(items, item)
		}
	}

	sort.Slice(items, func(i, j int) bool {
		vi, _ := strconv.ParseUint(items[i]["version"].(*types.AttributeValueMemberN).Value, 10, 64)
		vj, _ := strconv.ParseUint(items[j]["version"].(*types.AttributeValueMemberN).Value, 10, 64)

		return vi > vj
	})

	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}

	return &dynamodb.QueryOutput{Items: items}, nil
}

// racingDDBClient wedges a competing write between the commit store's
// version read and its conditional put.
type racingDDBClient struct {
	*mockDDBClient
	racer func()
	once  sync.Once
}

func (r *racingDDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	out, err := r.mockDDBClient.Query(ctx, params, optFns...)
	r.once.Do(r.racer)

	return out, err
}

func TestCommitStore(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyTable", func(t *testing.T) {
		cs := NewCommitStore(newMockDDBClient(), "commits", "s3://bucket/idx")

		prefix, version, err := cs.Current(ctx)
		require.NoError(t, err)
		assert.Empty(t, prefix)
		assert.Equal(t, uint64(0), version)
	})

	t.Run("CommitSequence", func(t *testing.T) {
		cs := NewCommitStore(newMockDDBClient(), "commits", "s3://bucket/idx")

		v1, err := cs.Commit(ctx, "snap-aaa/")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), v1)

		v2, err := cs.Commit(ctx, "snap-bbb/")
		require.NoError(t, err)
		assert.Equal(t, uint64(2), v2)

		prefix, version, err := cs.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, "snap-bbb/", prefix)
		assert.Equal(t, uint64(2), version)
	})

	t.Run("ConcurrentCommitConflict", func(t *testing.T) {
		ddb := newMockDDBClient()

		a := NewCommitStore(ddb, "commits", "s3://bucket/idx")

		_, err := a.Commit(ctx, "snap-a/")
		require.NoError(t, err)

		// A second writer claims version 2 right after b reads version 1,
		// so b's conditional put lands on an existing key.
		racing := &racingDDBClient{mockDDBClient: ddb, racer: func() {
			_, err := ddb.PutItem(ctx, &dynamodb.PutItemInput{
				TableName: aws.String("commits"),
				Item: map[string]types.AttributeValue{
					"base_uri":        &types.AttributeValueMemberS{Value: "s3://bucket/idx"},
					"version":         &types.AttributeValueMemberN{Value: "2"},
					"snapshot_prefix": &types.AttributeValueMemberS{Value: "snap-racer/"},
				},
			})
			require.NoError(t, err)
		}}

		b := NewCommitStore(racing, "commits", "s3://bucket/idx")

		_, err = b.Commit(ctx, "snap-b/")
		assert.ErrorIs(t, err, ErrConcurrentCommit)

		// The racer's commit is what survives.
		prefix, version, err := a.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, "snap-racer/", prefix)
		assert.Equal(t, uint64(2), version)
	})

	t.Run("IsolatedByBaseURI", func(t *testing.T) {
		ddb := newMockDDBClient()

		a := NewCommitStore(ddb, "commits", "s3://bucket/idx-a")
		b := NewCommitStore(ddb, "commits", "s3://bucket/idx-b")

		_, err := a.Commit(ctx, "snap-a/")
		require.NoError(t, err)

		prefix, version, err := b.Current(ctx)
		require.NoError(t, err)
		assert.Empty(t, prefix)
		assert.Equal(t, uint64(0), version)
	})
}
