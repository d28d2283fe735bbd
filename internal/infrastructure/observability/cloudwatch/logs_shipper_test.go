package cloudwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreschagin/vessel-guard/internal/application/port"
)

type fakeLogsClient struct {
	mu            sync.Mutex
	puts          []*cloudwatchlogs.PutLogEventsInput
	putErrs       []error
	groupErr      error
	streamErr     error
	retentionDays int32
}

func (f *fakeLogsClient) PutLogEvents(_ context.Context, in *cloudwatchlogs.PutLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.putErrs) > 0 {
		err := f.putErrs[0]
		f.putErrs = f.putErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	f.puts = append(f.puts, in)
	return &cloudwatchlogs.PutLogEventsOutput{NextSequenceToken: aws.String(fmt.Sprintf("tok-%d", len(f.puts)))}, nil
}

func (f *fakeLogsClient) CreateLogGroup(context.Context, *cloudwatchlogs.CreateLogGroupInput, ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error) {
	return &cloudwatchlogs.CreateLogGroupOutput{}, f.groupErr
}

func (f *fakeLogsClient) CreateLogStream(context.Context, *cloudwatchlogs.CreateLogStreamInput, ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error) {
	return &cloudwatchlogs.CreateLogStreamOutput{}, f.streamErr
}

func (f *fakeLogsClient) PutRetentionPolicy(_ context.Context, in *cloudwatchlogs.PutRetentionPolicyInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error) {
	f.retentionDays = aws.ToInt32(in.RetentionInDays)
	return &cloudwatchlogs.PutRetentionPolicyOutput{}, nil
}

func decodeEvent(t *testing.T, event types.InputLogEvent) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(event.Message)), &out))
	return out
}

func TestLogsShipper_EventShape(t *testing.T) {
	s := newLogsShipper(&fakeLogsClient{}, LogsShipperConfig{Service: "vessel-guard-api"})
	at := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)

	event, err := s.toEvent(port.LogRecord{
		Time:      at,
		Level:     port.LogLevelWarn,
		Message:   "Anomaly alert raised",
		RequestID: "req-1",
		Fields:    map[string]any{"vessel_id": "v-7", "parameter": "oil_pressure", "count": 3},
	})
	require.NoError(t, err)
	assert.Equal(t, at.UnixMilli(), aws.ToInt64(event.Timestamp))

	got := decodeEvent(t, event)
	assert.Equal(t, "WARN", got["level"])
	assert.Equal(t, "vessel-guard-api", got["service"])
	assert.Equal(t, "req-1", got["request_id"])
	assert.Equal(t, "v-7", got["vessel_id"])
	assert.Equal(t, "oil_pressure", got["parameter"])
	assert.NotContains(t, got, "severity")
	assert.Equal(t, float64(3), got["fields"].(map[string]any)["count"])
}

func TestLogsShipper_TruncatesHugeEvents(t *testing.T) {
	s := newLogsShipper(&fakeLogsClient{}, LogsShipperConfig{})

	event, err := s.toEvent(port.LogRecord{Time: time.Now(), Level: port.LogLevelInfo, Message: strings.Repeat("x", maxLogEventSize+1000)})
	require.NoError(t, err)

	message := aws.ToString(event.Message)
	assert.Len(t, message, maxLogEventSize)
	assert.True(t, strings.HasSuffix(message, "..."))
}

func TestLogsShipper_FlushSortsAndChainsSequenceToken(t *testing.T) {
	client := &fakeLogsClient{}
	s := newLogsShipper(client, LogsShipperConfig{BatchSize: 10})
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, r := range []port.LogRecord{
		{Time: base.Add(2 * time.Second), Level: port.LogLevelInfo, Message: "third"},
		{Time: base, Level: port.LogLevelInfo, Message: "first"},
		{Time: base.Add(time.Second), Level: port.LogLevelInfo, Message: "second"},
	} {
		require.True(t, s.Enqueue(r))
	}
	require.NoError(t, s.Flush(context.Background()))
	require.True(t, s.Enqueue(port.LogRecord{Time: base.Add(time.Minute), Message: "later"}))
	require.NoError(t, s.Flush(context.Background()))
	require.NoError(t, s.Flush(context.Background()))

	require.Len(t, client.puts, 2)
	first := client.puts[0]
	require.Len(t, first.LogEvents, 3)
	assert.Equal(t, "first", decodeEvent(t, first.LogEvents[0])["message"])
	assert.Equal(t, "third", decodeEvent(t, first.LogEvents[2])["message"])
	assert.Nil(t, first.SequenceToken)
	assert.Equal(t, "tok-1", aws.ToString(client.puts[1].SequenceToken))
}

func TestLogsShipper_RetriesWithExpectedSequenceToken(t *testing.T) {
	client := &fakeLogsClient{
		putErrs: []error{&types.InvalidSequenceTokenException{ExpectedSequenceToken: aws.String("expected")}},
	}
	s := newLogsShipper(client, LogsShipperConfig{})

	s.Enqueue(port.LogRecord{Time: time.Now(), Message: "x"})
	require.NoError(t, s.Flush(context.Background()))
	require.Len(t, client.puts, 1)
	assert.Equal(t, "expected", aws.ToString(client.puts[0].SequenceToken))
}

func TestLogsShipper_DropsWhenQueueFull(t *testing.T) {
	s := newLogsShipper(&fakeLogsClient{}, LogsShipperConfig{BatchSize: 1, QueueSize: 2})

	assert.True(t, s.Enqueue(port.LogRecord{Message: "a"}))
	assert.True(t, s.Enqueue(port.LogRecord{Message: "b"}))
	assert.False(t, s.Enqueue(port.LogRecord{Message: "c"}))
	assert.Equal(t, int64(1), s.Dropped())
}

func TestLogsShipper_FailedBatchCountsAsDropped(t *testing.T) {
	boom := errors.New("throttled")
	client := &fakeLogsClient{putErrs: []error{boom, boom, boom}}
	s := newLogsShipper(client, LogsShipperConfig{})

	s.Enqueue(port.LogRecord{Time: time.Now(), Message: "a"})
	s.Enqueue(port.LogRecord{Time: time.Now(), Message: "b"})
	err := s.Flush(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int64(2), s.Dropped())
	assert.Empty(t, client.puts)
}

func TestSplitLogBatches(t *testing.T) {
	big := strings.Repeat("x", 400000)
	events := []types.InputLogEvent{
		{Message: aws.String(big)},
		{Message: aws.String(big)},
		{Message: aws.String(big)},
		{Message: aws.String("small")},
	}

	batches := splitLogBatches(events)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 2)
	assert.Empty(t, splitLogBatches(nil))
}

func TestLogsShipper_EnsureDestination(t *testing.T) {
	t.Run("new group gets retention", func(t *testing.T) {
		client := &fakeLogsClient{}
		s := newLogsShipper(client, LogsShipperConfig{LogGroupName: "/vessel-guard/api"})
		require.NoError(t, s.ensureDestination(context.Background(), 14))
		assert.Equal(t, int32(14), client.retentionDays)
	})

	t.Run("existing resources tolerated", func(t *testing.T) {
		client := &fakeLogsClient{
			groupErr:  &types.ResourceAlreadyExistsException{},
			streamErr: &types.ResourceAlreadyExistsException{},
		}
		s := newLogsShipper(client, LogsShipperConfig{})
		require.NoError(t, s.ensureDestination(context.Background(), 14))
		assert.Zero(t, client.retentionDays)
	})

	t.Run("other errors surface", func(t *testing.T) {
		client := &fakeLogsClient{streamErr: errors.New("access denied")}
		s := newLogsShipper(client, LogsShipperConfig{})
		assert.ErrorContains(t, s.ensureDestination(context.Background(), 0), "access denied")
	})
}

func TestNewLogsShipper_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config LogsShipperConfig
		errMsg string
	}{
		{"missing group", LogsShipperConfig{LogStreamName: "s", Region: "eu-west-1"}, "log group name is required"},
		{"missing stream", LogsShipperConfig{LogGroupName: "g", Region: "eu-west-1"}, "log stream name is required"},
		{"missing region", LogsShipperConfig{LogGroupName: "g", LogStreamName: "s"}, "region is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLogsShipper(context.Background(), tt.config)
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}
