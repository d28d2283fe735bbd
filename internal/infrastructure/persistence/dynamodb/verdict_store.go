package dynamodb

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/shopspring/decimal"
)

const (
	defaultListLimit  = 25
	maxListLimit      = 100
	maxBatchWriteSize = 25
	maxBatchRetries   = 5

	verdictParameterGSI1 = "GSI1"

	attrPK                = "PK"
	attrSK                = "SK"
	attrGSI1PK            = "GSI1PK"
	attrGSI1SK            = "GSI1SK"
	attrID                = "id"
	attrVesselID          = "vessel_id"
	attrParameterName     = "parameter_name"
	attrAnomalyDetected   = "anomaly_detected"
	attrAnomalyType       = "anomaly_type"
	attrDetectedAnomalies = "detected_anomalies"
	attrConfidence        = "confidence_score"
	attrSeverity          = "severity"
	attrFailureRisk       = "predicted_failure_risk"
	attrActions           = "recommended_actions"
	attrSkippedChecks     = "skipped_checks"
	attrMaintenance       = "maintenance"
	attrUrgency           = "urgency"
	attrEstimatedCost     = "estimated_cost"
	attrParts             = "parts"
	attrEvaluatedAt       = "evaluated_at"
	attrExpiresAt         = "expires_at"
)

var vesselIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,64}$`)

type Config struct {
	TableName       string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	StrongReads     bool
	// RecordTTLDays задает expires_at (TTL DynamoDB); 0 отключает
	RecordTTLDays int
}

// dynamoAPI часть клиента DynamoDB, используемая хранилищем
type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// VerdictStore хранит вердикты детектора аномалий в DynamoDB.
// PK = судно, SK = время оценки; GSI1 выбирает вердикты одного параметра.
type VerdictStore struct {
	client      dynamoAPI
	tableName   string
	strongReads bool
	recordTTL   time.Duration
}

var _ port.VerdictStore = (*VerdictStore)(nil)

type cursorMode string

const (
	cursorModeVessel    cursorMode = "vessel"
	cursorModeParameter cursorMode = "parameter"
)

type cursorPayload struct {
	Mode          cursorMode             `json:"mode"`
	VesselID      string                 `json:"vessel_id"`
	ParameterName string                 `json:"parameter_name,omitempty"`
	FromMS        int64                  `json:"from_ms,omitempty"`
	ToMS          int64                  `json:"to_ms,omitempty"`
	Key           map[string]cursorValue `json:"key"`
}

type cursorValue struct {
	S string `json:"s,omitempty"`
	N string `json:"n,omitempty"`
}

func NewVerdictStore(ctx context.Context, cfg Config) (*VerdictStore, error) {
	if strings.TrimSpace(cfg.TableName) == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}

	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	accessKeyID := strings.TrimSpace(cfg.AccessKeyID)
	secretAccessKey := strings.TrimSpace(cfg.SecretAccessKey)
	if accessKeyID != "" || secretAccessKey != "" {
		if accessKeyID == "" || secretAccessKey == "" {
			return nil, fmt.Errorf("both dynamodb access key id and secret access key are required for static credentials")
		}
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config for dynamodb: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(options *dynamodb.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			options.BaseEndpoint = &endpoint
		}
	})

	return newVerdictStore(client, cfg), nil
}

func newVerdictStore(client dynamoAPI, cfg Config) *VerdictStore {
	return &VerdictStore{
		client:      client,
		tableName:   strings.TrimSpace(cfg.TableName),
		strongReads: cfg.StrongReads,
		recordTTL:   time.Duration(cfg.RecordTTLDays) * 24 * time.Hour,
	}
}

// PutVerdict сохраняет один вердикт
func (s *VerdictStore) PutVerdict(ctx context.Context, verdict *entity.AnomalyVerdict) error {
	item, err := s.toItem(verdict)
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put verdict failed: %w", err)
	}
	return nil
}

// PutVerdicts сохраняет вердикты пачками по 25 (лимит BatchWriteItem)
func (s *VerdictStore) PutVerdicts(ctx context.Context, verdicts []*entity.AnomalyVerdict) error {
	if len(verdicts) == 0 {
		return nil
	}

	for start := 0; start < len(verdicts); start += maxBatchWriteSize {
		end := start + maxBatchWriteSize
		if end > len(verdicts) {
			end = len(verdicts)
		}

		requests := make([]types.WriteRequest, 0, end-start)
		for _, verdict := range verdicts[start:end] {
			item, err := s.toItem(verdict)
			if err != nil {
				return err
			}
			requests = append(requests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		if err := s.writeBatchWithRetry(ctx, requests); err != nil {
			return err
		}
	}

	return nil
}

// ListByVessel возвращает вердикты судна от новых к старым
func (s *VerdictStore) ListByVessel(
	ctx context.Context,
	query port.VerdictListQuery,
) (port.VerdictListPage, error) {
	vesselID := strings.TrimSpace(query.VesselID)
	if !vesselIDPattern.MatchString(vesselID) {
		return port.VerdictListPage{}, fmt.Errorf("invalid vessel_id")
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	parameterName := strings.TrimSpace(query.ParameterName)
	fromMS, toMS, hasRange, err := normalizeTimeRange(query.From, query.To)
	if err != nil {
		return port.VerdictListPage{}, err
	}

	mode := cursorModeVessel
	if parameterName != "" {
		mode = cursorModeParameter
	}

	input := &dynamodb.QueryInput{
		TableName:                 &s.tableName,
		Limit:                     int32Pointer(int32(limit)),
		ScanIndexForward:          boolPointer(false),
		ConsistentRead:            boolPointer(s.strongReads),
		ExpressionAttributeNames:  map[string]string{},
		ExpressionAttributeValues: map[string]types.AttributeValue{},
	}

	if mode == cursorModeVessel {
		input.ExpressionAttributeNames["#pk"] = attrPK
		input.ExpressionAttributeValues[":pk"] = &types.AttributeValueMemberS{Value: buildPK(vesselID)}
		keyCondition := "#pk = :pk"
		if hasRange {
			input.ExpressionAttributeNames["#sk"] = attrSK
			input.ExpressionAttributeValues[":from"] = &types.AttributeValueMemberS{Value: buildSortLowerBound(fromMS)}
			input.ExpressionAttributeValues[":to"] = &types.AttributeValueMemberS{Value: buildSortUpperBound(toMS)}
			keyCondition += " AND #sk BETWEEN :from AND :to"
		}
		input.KeyConditionExpression = &keyCondition
	} else {
		input.IndexName = stringPointer(verdictParameterGSI1)
		input.ConsistentRead = nil
		input.ExpressionAttributeNames["#gsi1pk"] = attrGSI1PK
		input.ExpressionAttributeValues[":pk"] = &types.AttributeValueMemberS{Value: buildGSI1PK(vesselID, parameterName)}
		keyCondition := "#gsi1pk = :pk"
		if hasRange {
			input.ExpressionAttributeNames["#gsi1sk"] = attrGSI1SK
			input.ExpressionAttributeValues[":from"] = &types.AttributeValueMemberS{Value: buildSortLowerBound(fromMS)}
			input.ExpressionAttributeValues[":to"] = &types.AttributeValueMemberS{Value: buildSortUpperBound(toMS)}
			keyCondition += " AND #gsi1sk BETWEEN :from AND :to"
		}
		input.KeyConditionExpression = &keyCondition
	}

	if strings.TrimSpace(query.Cursor) != "" {
		exclusiveStartKey, err := decodeCursor(query.Cursor, mode, vesselID, parameterName, fromMS, toMS)
		if err != nil {
			return port.VerdictListPage{}, err
		}
		input.ExclusiveStartKey = exclusiveStartKey
	}

	output, err := s.client.Query(ctx, input)
	if err != nil {
		return port.VerdictListPage{}, fmt.Errorf("dynamodb query failed: %w", err)
	}

	items := make([]*entity.AnomalyVerdict, 0, len(output.Items))
	for _, raw := range output.Items {
		verdict, err := fromItem(raw)
		if err != nil {
			return port.VerdictListPage{}, err
		}
		items = append(items, verdict)
	}

	nextCursor := ""
	if len(output.LastEvaluatedKey) > 0 {
		nextCursor, err = encodeCursor(output.LastEvaluatedKey, mode, vesselID, parameterName, fromMS, toMS)
		if err != nil {
			return port.VerdictListPage{}, err
		}
	}

	return port.VerdictListPage{
		Items:      items,
		NextCursor: nextCursor,
	}, nil
}

func (s *VerdictStore) writeBatchWithRetry(ctx context.Context, requests []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{
		s.tableName: requests,
	}

	for attempt := 0; attempt < maxBatchRetries; attempt++ {
		output, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: pending,
		})
		if err != nil {
			return fmt.Errorf("dynamodb batch write failed: %w", err)
		}

		if len(output.UnprocessedItems) == 0 {
			return nil
		}

		pending = output.UnprocessedItems
		select {
		case <-time.After(time.Duration(attempt+1) * 100 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("dynamodb batch write has unprocessed items after retries")
}

func (s *VerdictStore) toItem(verdict *entity.AnomalyVerdict) (map[string]types.AttributeValue, error) {
	if verdict == nil {
		return nil, fmt.Errorf("verdict is required")
	}
	vesselID := strings.TrimSpace(verdict.VesselID())
	parameterName := strings.TrimSpace(verdict.ParameterName())
	if !vesselIDPattern.MatchString(vesselID) {
		return nil, fmt.Errorf("invalid vessel_id")
	}
	if parameterName == "" {
		return nil, fmt.Errorf("parameter_name is required")
	}

	evaluatedAt := verdict.EvaluatedAt().UTC()
	evaluatedAtMS := evaluatedAt.UnixMilli()

	item := map[string]types.AttributeValue{
		attrPK:                &types.AttributeValueMemberS{Value: buildPK(vesselID)},
		attrSK:                &types.AttributeValueMemberS{Value: buildSK(evaluatedAtMS, parameterName, verdict.ID())},
		attrGSI1PK:            &types.AttributeValueMemberS{Value: buildGSI1PK(vesselID, parameterName)},
		attrGSI1SK:            &types.AttributeValueMemberS{Value: buildGSI1SK(evaluatedAtMS, verdict.ID())},
		attrID:                &types.AttributeValueMemberS{Value: verdict.ID()},
		attrVesselID:          &types.AttributeValueMemberS{Value: vesselID},
		attrParameterName:     &types.AttributeValueMemberS{Value: parameterName},
		attrAnomalyDetected:   &types.AttributeValueMemberBOOL{Value: verdict.AnomalyDetected()},
		attrAnomalyType:       &types.AttributeValueMemberS{Value: verdict.AnomalyType().String()},
		attrDetectedAnomalies: stringList(anomalyStrings(verdict.DetectedAnomalies())),
		attrConfidence:        scoreAttr(verdict.ConfidenceScore()),
		attrSeverity:          &types.AttributeValueMemberS{Value: verdict.Severity().String()},
		attrFailureRisk:       scoreAttr(verdict.PredictedFailureRisk()),
		attrActions:           stringList(verdict.RecommendedActions()),
		attrSkippedChecks:     stringList(verdict.SkippedChecks()),
		attrEvaluatedAt:       &types.AttributeValueMemberN{Value: strconv.FormatInt(evaluatedAtMS, 10)},
	}

	if m := verdict.MaintenanceSuggestion(); m != nil {
		item[attrMaintenance] = &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			attrUrgency:       &types.AttributeValueMemberS{Value: m.Urgency.String()},
			attrEstimatedCost: scoreAttr(m.EstimatedCost),
			attrParts:         stringList(m.Parts),
		}}
	}
	if s.recordTTL > 0 {
		item[attrExpiresAt] = &types.AttributeValueMemberN{Value: strconv.FormatInt(evaluatedAt.Add(s.recordTTL).Unix(), 10)}
	}

	return item, nil
}

func fromItem(item map[string]types.AttributeValue) (*entity.AnomalyVerdict, error) {
	id, err := attrString(item, attrID)
	if err != nil {
		return nil, err
	}
	vesselID, err := attrString(item, attrVesselID)
	if err != nil {
		return nil, err
	}
	parameterName, err := attrString(item, attrParameterName)
	if err != nil {
		return nil, err
	}
	anomalyType, err := attrString(item, attrAnomalyType)
	if err != nil {
		return nil, err
	}
	severity, err := attrString(item, attrSeverity)
	if err != nil {
		return nil, err
	}
	confidence, err := attrScore(item, attrConfidence)
	if err != nil {
		return nil, err
	}
	risk, err := attrScore(item, attrFailureRisk)
	if err != nil {
		return nil, err
	}
	evaluatedAtMS, err := attrInt64(item, attrEvaluatedAt)
	if err != nil {
		return nil, err
	}

	detected := optionalStringList(item, attrDetectedAnomalies)
	detectedTypes := make([]valueobject.AnomalyType, 0, len(detected))
	for _, t := range detected {
		detectedTypes = append(detectedTypes, valueobject.AnomalyType(t))
	}

	var maintenance *entity.MaintenanceSuggestion
	if raw, ok := item[attrMaintenance].(*types.AttributeValueMemberM); ok {
		urgency, err := attrString(raw.Value, attrUrgency)
		if err != nil {
			return nil, err
		}
		cost, err := attrScore(raw.Value, attrEstimatedCost)
		if err != nil {
			return nil, err
		}
		maintenance = &entity.MaintenanceSuggestion{
			Urgency:       valueobject.MaintenanceUrgency(urgency),
			EstimatedCost: cost,
			Parts:         optionalStringList(raw.Value, attrParts),
		}
	}

	verdict, err := entity.NewAnomalyVerdict(entity.AnomalyVerdictParams{
		ID:                    id,
		VesselID:              vesselID,
		ParameterName:         parameterName,
		AnomalyDetected:       optionalBool(item, attrAnomalyDetected),
		AnomalyType:           valueobject.AnomalyType(anomalyType),
		DetectedAnomalies:     detectedTypes,
		ConfidenceScore:       confidence,
		Severity:              valueobject.Severity(severity),
		PredictedFailureRisk:  risk,
		RecommendedActions:    optionalStringList(item, attrActions),
		MaintenanceSuggestion: maintenance,
		SkippedChecks:         optionalStringList(item, attrSkippedChecks),
		EvaluatedAt:           time.UnixMilli(evaluatedAtMS).UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("invalid stored verdict %s: %w", id, err)
	}
	return verdict, nil
}

func normalizeTimeRange(from, to time.Time) (int64, int64, bool, error) {
	from = from.UTC()
	to = to.UTC()
	if from.IsZero() && to.IsZero() {
		return 0, math.MaxInt64, false, nil
	}

	fromMS := int64(0)
	toMS := int64(math.MaxInt64)
	if !from.IsZero() {
		fromMS = from.UnixMilli()
	}
	if !to.IsZero() {
		toMS = to.UnixMilli()
	}

	if fromMS > toMS {
		return 0, 0, false, fmt.Errorf("from must be less than or equal to to")
	}

	return fromMS, toMS, true, nil
}

func buildPK(vesselID string) string {
	return "VESSEL#" + vesselID
}

func buildSK(evaluatedAtMS int64, parameterName, id string) string {
	return fmt.Sprintf("TS#%013d#PARAM#%s#ID#%s", evaluatedAtMS, parameterName, objectHash(id))
}

func buildGSI1PK(vesselID, parameterName string) string {
	return fmt.Sprintf("VESSEL#%s#PARAM#%s", vesselID, parameterName)
}

func buildGSI1SK(evaluatedAtMS int64, id string) string {
	return fmt.Sprintf("TS#%013d#ID#%s", evaluatedAtMS, objectHash(id))
}

func buildSortLowerBound(tsMS int64) string {
	return fmt.Sprintf("TS#%013d#", tsMS)
}

func buildSortUpperBound(tsMS int64) string {
	return fmt.Sprintf("TS#%013d#~", tsMS)
}

func objectHash(key string) string {
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// scoreAttr пишет оценку фиксированной строкой с 4 знаками
func scoreAttr(v float64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: decimal.NewFromFloat(v).StringFixed(entity.ScorePrecision)}
}

func attrScore(item map[string]types.AttributeValue, name string) (float64, error) {
	raw, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("missing attribute %s", name)
	}
	d, err := decimal.NewFromString(raw.Value)
	if err != nil {
		return 0, fmt.Errorf("invalid attribute %s: %w", name, err)
	}
	f, _ := d.Float64()
	return f, nil
}

func anomalyStrings(kinds []valueobject.AnomalyType) []string {
	out := make([]string, len(kinds))
	for i, t := range kinds {
		out[i] = t.String()
	}
	return out
}

// stringList хранит строки как L: SS не допускает пустых множеств и не сохраняет порядок
func stringList(values []string) types.AttributeValue {
	list := make([]types.AttributeValue, len(values))
	for i, v := range values {
		list[i] = &types.AttributeValueMemberS{Value: v}
	}
	return &types.AttributeValueMemberL{Value: list}
}

func optionalStringList(item map[string]types.AttributeValue, name string) []string {
	raw, ok := item[name].(*types.AttributeValueMemberL)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw.Value))
	for _, v := range raw.Value {
		if s, ok := v.(*types.AttributeValueMemberS); ok {
			out = append(out, s.Value)
		}
	}
	return out
}

func optionalBool(item map[string]types.AttributeValue, name string) bool {
	raw, ok := item[name].(*types.AttributeValueMemberBOOL)
	return ok && raw.Value
}

func encodeCursor(
	key map[string]types.AttributeValue,
	mode cursorMode,
	vesselID, parameterName string,
	fromMS, toMS int64,
) (string, error) {
	values := make(map[string]cursorValue, len(key))
	for attributeName, raw := range key {
		switch value := raw.(type) {
		case *types.AttributeValueMemberS:
			values[attributeName] = cursorValue{S: value.Value}
		case *types.AttributeValueMemberN:
			values[attributeName] = cursorValue{N: value.Value}
		default:
			return "", fmt.Errorf("unsupported cursor attribute type for %s", attributeName)
		}
	}

	payload := cursorPayload{
		Mode:          mode,
		VesselID:      vesselID,
		ParameterName: parameterName,
		FromMS:        fromMS,
		ToMS:          toMS,
		Key:           values,
	}

	serialized, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(serialized), nil
}

func decodeCursor(
	cursor string,
	mode cursorMode,
	vesselID, parameterName string,
	fromMS, toMS int64,
) (map[string]types.AttributeValue, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}

	var payload cursorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}

	if payload.Mode != mode ||
		payload.VesselID != vesselID ||
		payload.ParameterName != parameterName ||
		payload.FromMS != fromMS ||
		payload.ToMS != toMS {
		return nil, fmt.Errorf("cursor does not match query filters")
	}

	key := make(map[string]types.AttributeValue, len(payload.Key))
	for attributeName, value := range payload.Key {
		if value.S != "" {
			key[attributeName] = &types.AttributeValueMemberS{Value: value.S}
			continue
		}
		if value.N != "" {
			key[attributeName] = &types.AttributeValueMemberN{Value: value.N}
			continue
		}
		return nil, fmt.Errorf("invalid cursor")
	}

	return key, nil
}

func attrString(item map[string]types.AttributeValue, name string) (string, error) {
	raw, ok := item[name]
	if !ok {
		return "", fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberS)
	if !ok || strings.TrimSpace(value.Value) == "" {
		return "", fmt.Errorf("invalid attribute %s", name)
	}
	return value.Value, nil
}

func attrInt64(item map[string]types.AttributeValue, name string) (int64, error) {
	raw, ok := item[name]
	if !ok {
		return 0, fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("invalid attribute %s", name)
	}
	parsed, err := strconv.ParseInt(value.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid attribute %s: %w", name, err)
	}
	return parsed, nil
}

func boolPointer(v bool) *bool {
	return &v
}

func int32Pointer(v int32) *int32 {
	return &v
}

func stringPointer(v string) *string {
	return &v
}
