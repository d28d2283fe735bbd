package websocket

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
)

// maxFilterVessels ограничивает список судов в одной подписке
const maxFilterVessels = 64

// Filter подписка консоли: пустой набор судов означает все суда,
// пустой MinSeverity пропускает любой уровень
type Filter struct {
	Vessels     map[string]struct{}
	MinSeverity valueobject.Severity
}

// NewFilter проверяет и нормализует подписку
func NewFilter(vessels []string, minSeverity string) (Filter, error) {
	f := Filter{}
	for _, raw := range vessels {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if f.Vessels == nil {
			f.Vessels = make(map[string]struct{})
		}
		f.Vessels[id] = struct{}{}
	}
	if len(f.Vessels) > maxFilterVessels {
		return Filter{}, fmt.Errorf("too many vessels in subscription: %d > %d", len(f.Vessels), maxFilterVessels)
	}

	if s := strings.TrimSpace(strings.ToLower(minSeverity)); s != "" {
		severity := valueobject.Severity(s)
		if err := severity.Validate(); err != nil {
			return Filter{}, err
		}
		f.MinSeverity = severity
	}
	return f, nil
}

// FilterFromQuery читает ?vesselId=a,b&minSeverity=high
func FilterFromQuery(q url.Values) (Filter, error) {
	var vessels []string
	for _, v := range q["vesselId"] {
		vessels = append(vessels, strings.Split(v, ",")...)
	}
	return NewFilter(vessels, q.Get("minSeverity"))
}

func (f Filter) Matches(vesselID string, severity valueobject.Severity) bool {
	if len(f.Vessels) > 0 {
		if _, ok := f.Vessels[vesselID]; !ok {
			return false
		}
	}
	return f.MinSeverity == "" || severity.AtLeast(f.MinSeverity)
}

// VesselList отсортированный список судов для ответа клиенту
func (f Filter) VesselList() []string {
	out := make([]string, 0, len(f.Vessels))
	for id := range f.Vessels {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
