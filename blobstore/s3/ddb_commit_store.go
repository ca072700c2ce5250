package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// CurrentSnapshot is the logical name of the committed snapshot pointer.
const CurrentSnapshot = "CURRENT"

// ErrConcurrentCommit is returned when another writer committed a snapshot
// between read and write.
var ErrConcurrentCommit = errors.New("concurrent snapshot commit detected")

// DDBClient is the subset of the DynamoDB API the commit store uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// CommitStore tracks which snapshot prefix is current, using DynamoDB
// conditional writes for the compare-and-swap that S3 lacks. Snapshot data
// itself lives in the S3 store; only the pointer goes through DynamoDB, so
// concurrent writers cannot clobber each other's commits.
//
// Table schema: partition key base_uri (S), sort key version (N). Create
// with:
//
//	aws dynamodb create-table \
//	  --table-name seekgo-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitStore struct {
	ddbClient DDBClient
	tableName string
	baseURI   string
}

// NewCommitStore creates a commit store. baseURI identifies this index in
// the shared table, conventionally "s3://bucket/prefix".
func NewCommitStore(ddbClient DDBClient, tableName, baseURI string) *CommitStore {
	return &CommitStore{
		ddbClient: ddbClient,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

// Current returns the committed snapshot prefix and its version. A zero
// version means nothing has been committed yet.
func (c *CommitStore) Current(ctx context.Context) (string, uint64, error) {
	resp, err := c.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: c.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return "", 0, fmt.Errorf("query commit table: %w", err)
	}

	if len(resp.Items) == 0 {
		return "", 0, nil
	}

	item := resp.Items[0]

	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return "", 0, errors.New("commit table: invalid version attribute")
	}

	prefixAttr, ok := item["snapshot_prefix"].(*types.AttributeValueMemberS)
	if !ok {
		return "", 0, errors.New("commit table: invalid snapshot_prefix attribute")
	}

	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("commit table: parse version: %w", err)
	}

	return prefixAttr.Value, version, nil
}

// Commit atomically records snapshotPrefix as the next version. It fails
// with ErrConcurrentCommit if another writer claimed the version first; the
// caller may re-read Current and retry.
func (c *CommitStore) Commit(ctx context.Context, snapshotPrefix string) (uint64, error) {
	_, current, err := c.Current(ctx)
	if err != nil {
		return 0, err
	}

	next := current + 1

	_, err = c.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri":        &types.AttributeValueMemberS{Value: c.baseURI},
			"version":         &types.AttributeValueMemberN{Value: strconv.FormatUint(next, 10)},
			"snapshot_prefix": &types.AttributeValueMemberS{Value: snapshotPrefix},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return 0, ErrConcurrentCommit
		}

		return 0, fmt.Errorf("commit snapshot version: %w", err)
	}

	return next, nil
}
