package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/dto"
	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/internal/domain/service"
	"github.com/dreschagin/vessel-guard/pkg/logger"
)

// ErrVerdictStoreDisabled хранилище записей вердиктов не подключено
var ErrVerdictStoreDisabled = errors.New("verdict store is not configured")

type ListVerdictsCommand struct {
	VesselID      string
	ParameterName string
	Limit         int
	Cursor        string
	From          time.Time
	To            time.Time
}

type ListVerdictsConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// ListVerdictsUseCase возвращает историю вердиктов судна из хранилища записей
type ListVerdictsUseCase struct {
	store  port.VerdictStore
	config ListVerdictsConfig
	logger *logger.Logger
}

func NewListVerdictsUseCase(
	store port.VerdictStore,
	config ListVerdictsConfig,
	log *logger.Logger,
) *ListVerdictsUseCase {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 25
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = 100
	}
	return &ListVerdictsUseCase{
		store:  store,
		config: config,
		logger: log,
	}
}

func (uc *ListVerdictsUseCase) Execute(ctx context.Context, cmd ListVerdictsCommand) (*dto.VerdictPageDTO, error) {
	vesselID := strings.TrimSpace(cmd.VesselID)
	if vesselID == "" {
		return nil, fmt.Errorf("%w: vessel id is required", service.ErrInvalidInput)
	}
	if uc.store == nil {
		return nil, ErrVerdictStoreDisabled
	}

	limit := cmd.Limit
	if limit <= 0 {
		limit = uc.config.DefaultLimit
	}
	if limit > uc.config.MaxLimit {
		limit = uc.config.MaxLimit
	}

	if !cmd.From.IsZero() && !cmd.To.IsZero() && cmd.From.After(cmd.To) {
		return nil, fmt.Errorf("%w: from must be less than or equal to to", service.ErrInvalidInput)
	}

	page, err := uc.store.ListByVessel(ctx, port.VerdictListQuery{
		VesselID:      vesselID,
		ParameterName: strings.TrimSpace(cmd.ParameterName),
		Limit:         limit,
		Cursor:        strings.TrimSpace(cmd.Cursor),
		From:          cmd.From.UTC(),
		To:            cmd.To.UTC(),
	})
	if err != nil {
		uc.logger.Error("Failed to list verdicts", err, "vessel_id", vesselID)
		return nil, fmt.Errorf("failed to list verdicts: %w", err)
	}

	return &dto.VerdictPageDTO{
		Items:      dto.ToVerdicts(page.Items),
		NextCursor: page.NextCursor,
	}, nil
}
