package s3

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/neuronidx/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockDDBClient is an in-memory DynamoDB mock for testing.
type mockDDBClient struct {
	mu    sync.RWMutex
	items map[string]map[string]types.AttributeValue // key -> item
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{
		items: make(map[string]map[string]types.AttributeValue),
	}
}

func attrS(item map[string]types.AttributeValue, name string) string {
	return item[name].(*types.AttributeValueMemberS).Value
}

func attrN(item map[string]types.AttributeValue, name string) uint64 {
	v, _ := strconv.ParseUint(item[name].(*types.AttributeValueMemberN).Value, 10, 64)
	return v
}

func (m *mockDDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf("%s:%d", attrS(params.Item, "base_uri"), attrN(params.Item, "version"))

	// Check conditional expression
	if aws.ToString(params.ConditionExpression) == "attribute_not_exists(version)" {
		if _, exists := m.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}

	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	baseURI := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value

	var items []map[string]types.AttributeValue
	for _, item := range m.items {
		if attrS(item, "base_uri") == baseURI {
			items = append(items, item)
		}
	}

	// Sort descending by version
	slices.SortFunc(items, func(a, b map[string]types.AttributeValue) int {
		return int(attrN(b, "version")) - int(attrN(a, "version"))
	})

	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}

	return &dynamodb.QueryOutput{Items: items}, nil
}

func newTestDDBCommitStore(ddb *mockDDBClient, s3Client *MockS3Client, baseURI string) *DDBCommitStore {
	return NewDDBCommitStore(NewStore(s3Client, "test-bucket", "test/"), ddb, "neuronidx-commits", baseURI)
}

func readCurrent(t *testing.T, store blobstore.BlobStore, name string) string {
	t.Helper()
	data, err := blobstore.ReadAll(context.Background(), store, name)
	require.NoError(t, err)
	return string(data)
}

func TestDDBCommitStore_FirstCommit(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()
	store := newTestDDBCommitStore(ddb, new(MockS3Client), "s3://test-bucket/test/")

	err := store.Put(ctx, "CURRENT", []byte("checkpoints/000001/manifest.json"))
	require.NoError(t, err)

	assert.Equal(t, "checkpoints/000001/manifest.json", readCurrent(t, store, "CURRENT"))
}

func TestDDBCommitStore_MultipleCommits(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()
	store := newTestDDBCommitStore(ddb, new(MockS3Client), "s3://test-bucket/test/")

	for i := 1; i <= 11; i++ {
		err := store.Put(ctx, "CURRENT", []byte(fmt.Sprintf("checkpoints/%06d/manifest.json", i)))
		require.NoError(t, err)
	}

	assert.Equal(t, "checkpoints/000011/manifest.json", readCurrent(t, store, "CURRENT"))
}

func TestDDBCommitStore_ConcurrentCommits(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()
	store := newTestDDBCommitStore(ddb, new(MockS3Client), "s3://test-bucket/test/")

	require.NoError(t, store.Put(ctx, "CURRENT", []byte("m1")))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			err := store.Put(ctx, "CURRENT", []byte(fmt.Sprintf("m%d", id+2)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrConcurrentModification):
				conflicts++
			case err == nil:
				successes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}

	wg.Wait()
	assert.Greater(t, successes, 0, "at least one writer should succeed")
	assert.Equal(t, 5, successes+conflicts)
}

func TestDDBCommitStore_NotFoundBeforeCommit(t *testing.T) {
	ddb := newMockDDBClient()
	store := newTestDDBCommitStore(ddb, new(MockS3Client), "s3://test-bucket/test/")

	_, err := store.Open(context.Background(), "CURRENT")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestDDBCommitStore_IsolatedNamespaces(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()

	store1 := newTestDDBCommitStore(ddb, new(MockS3Client), "s3://bucket-a/path/")
	store2 := newTestDDBCommitStore(ddb, new(MockS3Client), "s3://bucket-b/path/")

	require.NoError(t, store1.Put(ctx, "CURRENT", []byte("manifest-a")))
	require.NoError(t, store2.Put(ctx, "CURRENT", []byte("manifest-b")))
	require.NoError(t, store1.Put(ctx, "tenant/CURRENT", []byte("manifest-tenant")))

	assert.Equal(t, "manifest-a", readCurrent(t, store1, "CURRENT"))
	assert.Equal(t, "manifest-b", readCurrent(t, store2, "CURRENT"))
	assert.Equal(t, "manifest-tenant", readCurrent(t, store1, "tenant/CURRENT"))
}

func TestDDBCommitStore_PassThrough(t *testing.T) {
	ctx := context.Background()
	s3Client := new(MockS3Client)
	store := newTestDDBCommitStore(newMockDDBClient(), s3Client, "s3://test-bucket/test/")

	s3Client.On("PutObject", mock.Anything, mock.MatchedBy(func(input *s3.PutObjectInput) bool {
		return *input.Key == "test/checkpoints/000001/manifest.json"
	})).Return(&s3.PutObjectOutput{}, nil).Once()
	s3Client.On("DeleteObject", mock.Anything, mock.MatchedBy(func(input *s3.DeleteObjectInput) bool {
		return *input.Key == "test/checkpoints/000001/manifest.json"
	})).Return(&s3.DeleteObjectOutput{}, nil).Once()

	require.NoError(t, store.Put(ctx, "checkpoints/000001/manifest.json", []byte("{}")))
	require.NoError(t, store.Delete(ctx, "checkpoints/000001/manifest.json"))
	require.NoError(t, store.Delete(ctx, "CURRENT"))

	s3Client.AssertExpectations(t)
}
