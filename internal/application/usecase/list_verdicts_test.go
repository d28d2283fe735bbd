package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/service"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/dreschagin/vessel-guard/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerdictStore struct {
	page  port.VerdictListPage
	query port.VerdictListQuery
}

func (f *fakeVerdictStore) PutVerdict(context.Context, *entity.AnomalyVerdict) error { return nil }

func (f *fakeVerdictStore) ListByVessel(_ context.Context, q port.VerdictListQuery) (port.VerdictListPage, error) {
	f.query = q
	return f.page, nil
}

func TestListVerdicts_ClampsLimitAndMapsItems(t *testing.T) {
	v, err := entity.NewAnomalyVerdict(entity.AnomalyVerdictParams{
		VesselID:           "vessel-1",
		ParameterName:      "fuel_level",
		Severity:           valueobject.SeverityLow,
		RecommendedActions: []string{"Continue monitoring"},
	})
	require.NoError(t, err)

	store := &fakeVerdictStore{page: port.VerdictListPage{Items: []*entity.AnomalyVerdict{v}, NextCursor: "abc"}}
	uc := NewListVerdictsUseCase(store, ListVerdictsConfig{MaxLimit: 50}, logger.New("error"))

	got, err := uc.Execute(context.Background(), ListVerdictsCommand{VesselID: " vessel-1 ", Limit: 500})
	require.NoError(t, err)

	assert.Equal(t, 50, store.query.Limit)
	assert.Equal(t, "vessel-1", store.query.VesselID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, v.ID(), got.Items[0].ID)
	assert.Equal(t, "abc", got.NextCursor)
}

func TestListVerdicts_Validation(t *testing.T) {
	uc := NewListVerdictsUseCase(&fakeVerdictStore{}, ListVerdictsConfig{}, logger.New("error"))

	_, err := uc.Execute(context.Background(), ListVerdictsCommand{})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	now := time.Now()
	_, err = uc.Execute(context.Background(), ListVerdictsCommand{VesselID: "v", From: now, To: now.Add(-time.Hour)})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}
