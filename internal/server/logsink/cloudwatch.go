package logsink

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/dmitrijs2005/filevault/internal/server/awsx"
)

type cloudWatchAPI interface {
	CreateLogGroup(ctx context.Context, in *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	CreateLogStream(ctx context.Context, in *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, in *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// Seams for tests.
var (
	loadAWSConfig                 = awsx.LoadConfig
	newCloudWatchClientFromConfig = cloudwatchlogs.NewFromConfig
)

// CloudWatchConfig selects the log group and an optional endpoint override.
type CloudWatchConfig struct {
	Credentials awsx.Credentials
	Endpoint    string
	LogGroup    string
}

// CloudWatchSink writes events to CloudWatch Logs. The group and each stream
// are created on first use.
type CloudWatchSink struct {
	client cloudWatchAPI
	group  string

	mu        sync.Mutex
	groupDone bool
	streams   map[string]bool
}

var _ Sink = (*CloudWatchSink)(nil)

func NewCloudWatchSink(ctx context.Context, cfg CloudWatchConfig) (*CloudWatchSink, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := newCloudWatchClientFromConfig(awsCfg, func(o *cloudwatchlogs.Options) {
		o.BaseEndpoint = awsx.Endpoint(cfg.Endpoint)
	})
	return newCloudWatchSink(client, cfg.LogGroup), nil
}

func newCloudWatchSink(client cloudWatchAPI, group string) *CloudWatchSink {
	return &CloudWatchSink{client: client, group: group, streams: make(map[string]bool)}
}

// PutEvents sends events in chronological order, as CloudWatch requires.
func (s *CloudWatchSink) PutEvents(ctx context.Context, stream string, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := s.ensureStream(ctx, stream); err != nil {
		return err
	}

	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b Event) int { return a.Timestamp.Compare(b.Timestamp) })

	in := &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(s.group),
		LogStreamName: aws.String(stream),
		LogEvents:     make([]types.InputLogEvent, 0, len(sorted)),
	}
	for _, e := range sorted {
		in.LogEvents = append(in.LogEvents, types.InputLogEvent{
			Message:   aws.String(e.Message),
			Timestamp: aws.Int64(e.Timestamp.UnixMilli()),
		})
	}

	if _, err := s.client.PutLogEvents(ctx, in); err != nil {
		return fmt.Errorf("put log events: %w", err)
	}
	return nil
}

func (s *CloudWatchSink) ensureStream(ctx context.Context, stream string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.groupDone {
		_, err := s.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{LogGroupName: aws.String(s.group)})
		if err != nil && !alreadyExists(err) {
			return fmt.Errorf("create log group %s: %w", s.group, err)
		}
		s.groupDone = true
	}

	if s.streams[stream] {
		return nil
	}
	_, err := s.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(s.group),
		LogStreamName: aws.String(stream),
	})
	if err != nil && !alreadyExists(err) {
		return fmt.Errorf("create log stream %s: %w", stream, err)
	}
	s.streams[stream] = true
	return nil
}

func alreadyExists(err error) bool {
	var rae *types.ResourceAlreadyExistsException
	return errors.As(err, &rae)
}
