package service

import (
	"embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed tables/*.yaml
var embeddedTables embed.FS

// IndicatorRule пороговое правило отказа с весом риска [0,1]
type IndicatorRule struct {
	Threshold     float64  `yaml:"threshold"`
	RiskWeight    float64  `yaml:"risk_weight"`
	EstimatedCost float64  `yaml:"estimated_cost"`
	Parts         []string `yaml:"parts"`
}

// PatternRules набор правил, специфичных для параметра. Отсутствующее правило = nil.
type PatternRules struct {
	SuddenDrop    *IndicatorRule `yaml:"sudden_drop"`
	LowPressure   *IndicatorRule `yaml:"low_pressure"`
	Overheating   *IndicatorRule `yaml:"overheating"`
	Undercharging *IndicatorRule `yaml:"undercharging"`
}

// ValueRange допустимый диапазон [Low, High]
type ValueRange struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// ParameterProfile статическая конфигурация параметра телеметрии
type ParameterProfile struct {
	Name              string       `yaml:"-"`
	Unit              string       `yaml:"unit"`
	Range             ValueRange   `yaml:"range"`
	VarianceThreshold float64      `yaml:"variance_threshold"`
	Rules             PatternRules `yaml:"rules"`
}

// EngineSettings общие коэффициенты детектора аномалий
type EngineSettings struct {
	TrendSlopeThreshold    float64 `yaml:"trend_slope_threshold"`
	TrendMinPoints         int     `yaml:"trend_min_points"`
	ZScoreThreshold        float64 `yaml:"zscore_threshold"`
	ZScoreScale            float64 `yaml:"zscore_scale"`
	HistoricalRisk         float64 `yaml:"historical_risk"`
	RoughWeatherFactor     float64 `yaml:"rough_weather_factor"`
	HighPerformanceFactor  float64 `yaml:"high_performance_factor"`
	DegradedProviderFactor float64 `yaml:"degraded_provider_factor"`
}

// ScoreTiers границы уровней риска для балла [0,100].
// High = 0 означает, что уровень high является нижним (для маршрута).
type ScoreTiers struct {
	Low      float64 `yaml:"low"`
	Moderate float64 `yaml:"moderate"`
	High     float64 `yaml:"high"`
}

// LocationWeights веса оценки местоположения
type LocationWeights struct {
	DefaultBaseline       float64    `yaml:"default_baseline"`
	WeatherHighPenalty    float64    `yaml:"weather_high_penalty"`
	WeatherExtremePenalty float64    `yaml:"weather_extreme_penalty"`
	HarborBonus           float64    `yaml:"harbor_bonus"`
	HazardPenalty         float64    `yaml:"hazard_penalty"`
	Tiers                 ScoreTiers `yaml:"tiers"`
}

// RouteWeights веса анализа маршрута
type RouteWeights struct {
	Baseline              float64    `yaml:"baseline"`
	AverageSpeedKnots     float64    `yaml:"average_speed_knots"`
	WeatherHighPenalty    float64    `yaml:"weather_high_penalty"`
	WeatherExtremePenalty float64    `yaml:"weather_extreme_penalty"`
	HazardPenalty         float64    `yaml:"hazard_penalty"`
	ConcernThreshold      float64    `yaml:"concern_threshold"`
	Tiers                 ScoreTiers `yaml:"tiers"`
}

// EquipmentWeights веса проверки оборудования
type EquipmentWeights struct {
	Baseline       float64 `yaml:"baseline"`
	FailedPenalty  float64 `yaml:"failed_penalty"`
	ExpiredPenalty float64 `yaml:"expired_penalty"`
	OverduePenalty float64 `yaml:"overdue_penalty"`
}

// WeatherWeights пороги оценки погоды
type WeatherWeights struct {
	GaleWindKnots            float64    `yaml:"gale_wind_knots"`
	StrongWindKnots          float64    `yaml:"strong_wind_knots"`
	ModerateWindKnots        float64    `yaml:"moderate_wind_knots"`
	GalePenalty              float64    `yaml:"gale_penalty"`
	StrongWindPenalty        float64    `yaml:"strong_wind_penalty"`
	ModerateWindPenalty      float64    `yaml:"moderate_wind_penalty"`
	PoorVisibilityKm         float64    `yaml:"poor_visibility_km"`
	ReducedVisibilityKm      float64    `yaml:"reduced_visibility_km"`
	PoorVisibilityPenalty    float64    `yaml:"poor_visibility_penalty"`
	ReducedVisibilityPenalty float64    `yaml:"reduced_visibility_penalty"`
	RoughSeaMeters           float64    `yaml:"rough_sea_meters"`
	ModerateSeaMeters        float64    `yaml:"moderate_sea_meters"`
	RoughSeaPenalty          float64    `yaml:"rough_sea_penalty"`
	ModerateSeaPenalty       float64    `yaml:"moderate_sea_penalty"`
	Tiers                    ScoreTiers `yaml:"tiers"`
}

// SafetyWeights таблица весов движка безопасности
type SafetyWeights struct {
	Location  LocationWeights  `yaml:"location"`
	Route     RouteWeights     `yaml:"route"`
	Equipment EquipmentWeights `yaml:"equipment"`
	Weather   WeatherWeights   `yaml:"weather"`
}

type profileFile struct {
	Engine     EngineSettings              `yaml:"engine"`
	Parameters map[string]ParameterProfile `yaml:"parameters"`
}

// ProfileRegistry неизменяемое отображение имя параметра -> профиль.
// Безопасен для конкурентного чтения: после загрузки не изменяется.
type ProfileRegistry struct {
	engine   EngineSettings
	profiles map[string]ParameterProfile
	names    []string
}

// Tables все таблицы правил, загружаемые при старте процесса
type Tables struct {
	Profiles *ProfileRegistry
	Weights  SafetyWeights
}

// LoadEmbeddedTables загружает таблицы, встроенные в бинарник
func LoadEmbeddedTables() (*Tables, error) {
	profiles, err := embeddedTables.ReadFile("tables/parameter_profiles.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded parameter profiles: %w", err)
	}
	weights, err := embeddedTables.ReadFile("tables/safety_weights.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded safety weights: %w", err)
	}
	return ParseTables(profiles, weights)
}

// LoadTables загружает таблицы с диска; пустой путь означает встроенную таблицу.
func LoadTables(profilesPath, weightsPath string) (*Tables, error) {
	embedded, err := LoadEmbeddedTables()
	if err != nil {
		return nil, err
	}
	if profilesPath == "" && weightsPath == "" {
		return embedded, nil
	}

	profiles, _ := embeddedTables.ReadFile("tables/parameter_profiles.yaml")
	weights, _ := embeddedTables.ReadFile("tables/safety_weights.yaml")
	if profilesPath != "" {
		if profiles, err = os.ReadFile(profilesPath); err != nil {
			return nil, fmt.Errorf("failed to read parameter profiles %s: %w", profilesPath, err)
		}
	}
	if weightsPath != "" {
		if weights, err = os.ReadFile(weightsPath); err != nil {
			return nil, fmt.Errorf("failed to read safety weights %s: %w", weightsPath, err)
		}
	}
	return ParseTables(profiles, weights)
}

// ParseTables разбирает и валидирует YAML таблицы
func ParseTables(profilesYAML, weightsYAML []byte) (*Tables, error) {
	var pf profileFile
	if err := yaml.Unmarshal(profilesYAML, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse parameter profiles: %w", err)
	}
	registry, err := newProfileRegistry(pf)
	if err != nil {
		return nil, err
	}

	var weights SafetyWeights
	if err := yaml.Unmarshal(weightsYAML, &weights); err != nil {
		return nil, fmt.Errorf("failed to parse safety weights: %w", err)
	}
	if weights.Route.AverageSpeedKnots <= 0 {
		return nil, fmt.Errorf("route average speed must be positive")
	}

	return &Tables{Profiles: registry, Weights: weights}, nil
}

func newProfileRegistry(pf profileFile) (*ProfileRegistry, error) {
	if len(pf.Parameters) == 0 {
		return nil, fmt.Errorf("parameter profile table is empty")
	}
	if pf.Engine.TrendMinPoints < 2 {
		pf.Engine.TrendMinPoints = 3
	}
	if pf.Engine.ZScoreScale <= 0 {
		return nil, fmt.Errorf("zscore_scale must be positive")
	}

	profiles := make(map[string]ParameterProfile, len(pf.Parameters))
	names := make([]string, 0, len(pf.Parameters))
	for name, profile := range pf.Parameters {
		profile.Name = name
		if err := profile.Validate(); err != nil {
			return nil, fmt.Errorf("invalid profile %s: %w", name, err)
		}
		profiles[name] = profile.clone()
		names = append(names, name)
	}
	sort.Strings(names)

	return &ProfileRegistry{engine: pf.Engine, profiles: profiles, names: names}, nil
}

// Validate проверяет инварианты профиля: low < high и веса риска в [0,1]
func (p ParameterProfile) Validate() error {
	if p.Range.Low >= p.Range.High {
		return fmt.Errorf("range low %.4f must be below high %.4f", p.Range.Low, p.Range.High)
	}
	if p.VarianceThreshold <= 0 {
		return fmt.Errorf("variance threshold must be positive")
	}
	for name, rule := range p.Rules.all() {
		if rule == nil {
			continue
		}
		if rule.RiskWeight < 0 || rule.RiskWeight > 1 {
			return fmt.Errorf("rule %s risk weight %.4f outside [0,1]", name, rule.RiskWeight)
		}
		if rule.EstimatedCost < 0 {
			return fmt.Errorf("rule %s estimated cost cannot be negative", name)
		}
	}
	return nil
}

func (r PatternRules) all() map[string]*IndicatorRule {
	return map[string]*IndicatorRule{
		"sudden_drop":   r.SuddenDrop,
		"low_pressure":  r.LowPressure,
		"overheating":   r.Overheating,
		"undercharging": r.Undercharging,
	}
}

func (p ParameterProfile) clone() ParameterProfile {
	cloneRule := func(r *IndicatorRule) *IndicatorRule {
		if r == nil {
			return nil
		}
		c := *r
		c.Parts = append([]string(nil), r.Parts...)
		return &c
	}
	p.Rules = PatternRules{
		SuddenDrop:    cloneRule(p.Rules.SuddenDrop),
		LowPressure:   cloneRule(p.Rules.LowPressure),
		Overheating:   cloneRule(p.Rules.Overheating),
		Undercharging: cloneRule(p.Rules.Undercharging),
	}
	return p
}

// Lookup возвращает копию профиля параметра
func (r *ProfileRegistry) Lookup(name string) (ParameterProfile, bool) {
	profile, ok := r.profiles[name]
	if !ok {
		return ParameterProfile{}, false
	}
	return profile.clone(), true
}

// Names возвращает отсортированный список известных параметров
func (r *ProfileRegistry) Names() []string {
	return append([]string(nil), r.names...)
}

// Engine возвращает общие коэффициенты детектора
func (r *ProfileRegistry) Engine() EngineSettings {
	return r.engine
}
