package repomanager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dmitrijs2005/filevault/internal/server/awsx"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/activitylogs"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
)

type dynamoAPI interface {
	files.DynamoAPI
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Seams for tests.
var (
	loadAWSConfig             = awsx.LoadConfig
	newDynamoClientFromConfig = dynamodb.NewFromConfig
)

const tableWaitTimeout = 2 * time.Minute

// DynamoConfig names the tables and the optional endpoint override
// (DynamoDB Local).
type DynamoConfig struct {
	Credentials   awsx.Credentials
	Endpoint      string
	FileTable     string
	ActivityTable string
}

// DynamoRepositoryManager vends DynamoDB-backed repositories.
type DynamoRepositoryManager struct {
	client dynamoAPI
	cfg    DynamoConfig
}

var _ RepositoryManager = (*DynamoRepositoryManager)(nil)

func NewDynamoRepositoryManager(ctx context.Context, cfg DynamoConfig) (*DynamoRepositoryManager, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := newDynamoClientFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = awsx.Endpoint(cfg.Endpoint)
	})
	return &DynamoRepositoryManager{client: client, cfg: cfg}, nil
}

func (m *DynamoRepositoryManager) Files() files.Repository {
	return files.NewDynamoRepository(m.client, m.cfg.FileTable)
}

func (m *DynamoRepositoryManager) ActivityLogs() activitylogs.Repository {
	return activitylogs.NewDynamoRepository(m.client, m.cfg.ActivityTable)
}

// RunMigrations creates both tables if they do not exist yet.
func (m *DynamoRepositoryManager) RunMigrations(ctx context.Context) error {
	if err := m.ensureTable(ctx, m.cfg.FileTable, files.HashKey); err != nil {
		return err
	}
	return m.ensureTable(ctx, m.cfg.ActivityTable, activitylogs.HashKey)
}

func (m *DynamoRepositoryManager) ensureTable(ctx context.Context, table, hashKey string) error {
	_, err := m.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
	if err == nil {
		return nil
	}
	var rnf *types.ResourceNotFoundException
	if !errors.As(err, &rnf) {
		return fmt.Errorf("describe table %s: %w", table, err)
	}

	_, err = m.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(hashKey), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}
		return fmt.Errorf("create table %s: %w", table, err)
	}

	w := dynamodb.NewTableExistsWaiter(m.client)
	if err := w.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}, tableWaitTimeout); err != nil {
		return fmt.Errorf("wait for table %s: %w", table, err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (m *DynamoRepositoryManager) Close() error { return nil }
