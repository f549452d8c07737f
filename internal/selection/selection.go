// Package selection implements the three-step product selection flow: business type,
// then platforms and keywords, then products. Totals are always derived from the current
// selection and never stored.
package selection

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/seungjae8520/hjjtest/internal/catalog"
	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/quote"
)

const (
	FirstStep      = 1
	LastStep       = 3
	MaxSubKeywords = 5
	// MaxItemPrice caps a client-supplied price override.
	MaxItemPrice int64 = 1_000_000_000_000
)

// Visitor-facing messages.
const (
	MsgNothingSelected      = "상품을 선택해주세요."
	MsgStepLocked           = "플랫폼과 메인 키워드를 입력해주세요."
	MsgRestaurantIncomplete = "상품, 상호명, 연락처를 모두 입력해주세요."
	MsgCountOutOfRange      = "일일 수량을 확인해주세요."
)

var (
	ErrUnknownBusinessType  = errors.New("selection: unknown business type")
	ErrUnknownItem          = errors.New("selection: unknown item")
	ErrNothingSelected      = errors.New("selection: nothing selected")
	ErrRestaurantIncomplete = errors.New("selection: restaurant order incomplete")
	ErrStepLocked           = errors.New("selection: platform and main keyword required")
	ErrWrongTrack           = errors.New("selection: action does not apply to the chosen business type")
	ErrCountOutOfRange      = errors.New("selection: daily count adjustment out of range")
	ErrPriceOutOfRange      = errors.New("selection: price out of range")
)

// State is owned by a single browser session and is not safe for concurrent use.
type State struct {
	catalog *catalog.Catalog

	step         int
	businessType domain.BusinessType
	platforms    []domain.Platform
	mainKeyword  string
	subKeywords  []string
	products     []domain.PricedItem
	options      []domain.PricedItem
	virals       []domain.PricedItem

	restaurant restaurantState
}

type restaurantState struct {
	keyword      string
	products     []string
	counts       map[string]*quote.Counter
	addOns       []string
	businessName string
	phone        string
}

// New starts a selection at step 1 with restaurant counts at their minimums. Each count is
// capped at the metric's max_daily, or quote.DefaultCounterMax when the catalog omits it.
func New(c *catalog.Catalog) *State {
	if c == nil {
		c = catalog.Default()
	}
	s := &State{catalog: c, step: FirstStep}
	s.restaurant.counts = make(map[string]*quote.Counter, len(c.Restaurant.Metrics))
	for _, m := range c.Restaurant.Metrics {
		s.restaurant.counts[m.ID] = quote.NewCounter(m.MinDaily, m.MinDaily, m.MaxDaily)
	}
	return s
}

// Step returns the current step in [1,3].
func (s *State) Step() int { return s.step }

// BusinessType returns the chosen track, empty until selected.
func (s *State) BusinessType() domain.BusinessType { return s.businessType }

// NextStep moves forward, stopping at the last step.
func (s *State) NextStep() {
	if s.step < LastStep {
		s.step++
	}
}

// PreviousStep moves back, stopping at the first step.
func (s *State) PreviousStep() {
	if s.step > FirstStep {
		s.step--
	}
}

// Advance is NextStep guarded by the step-3 entry condition.
func (s *State) Advance() error {
	if s.step == LastStep-1 && !s.CanProceedToStep3() {
		return ErrStepLocked
	}
	s.NextStep()
	return nil
}

// SelectBusinessType chooses the pricing track.
func (s *State) SelectBusinessType(t domain.BusinessType) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownBusinessType, t)
	}
	s.businessType = t
	return nil
}

// TogglePlatform adds or removes a platform and reports whether it is now selected.
func (s *State) TogglePlatform(p domain.Platform) (bool, error) {
	if _, ok := s.catalog.PlatformName(string(p)); !ok {
		return false, fmt.Errorf("%w: platform %q", ErrUnknownItem, p)
	}
	if i := slices.Index(s.platforms, p); i >= 0 {
		s.platforms = slices.Delete(s.platforms, i, i+1)
		return false, nil
	}
	s.platforms = append(s.platforms, p)
	return true, nil
}

// SetMainKeyword replaces the main keyword.
func (s *State) SetMainKeyword(keyword string) {
	s.mainKeyword = keyword
}

// AddSubKeyword appends a trimmed keyword unless it is blank, a duplicate, or the list is full.
func (s *State) AddSubKeyword(keyword string) bool {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" || len(s.subKeywords) >= MaxSubKeywords || slices.Contains(s.subKeywords, keyword) {
		return false
	}
	s.subKeywords = append(s.subKeywords, keyword)
	return true
}

// RemoveSubKeyword drops the keyword at index; out-of-range indexes are ignored.
func (s *State) RemoveSubKeyword(index int) bool {
	if index < 0 || index >= len(s.subKeywords) {
		return false
	}
	s.subKeywords = slices.Delete(s.subKeywords, index, index+1)
	return true
}

// ToggleProduct adds or removes a product. A non-positive price uses the catalog price.
func (s *State) ToggleProduct(id string, price int64) (bool, error) {
	return toggleItem(&s.products, s.catalog.Product, "product", id, price)
}

// ToggleOption adds or removes a general-track option.
func (s *State) ToggleOption(id string, price int64) (bool, error) {
	return toggleItem(&s.options, s.catalog.Option, "option", id, price)
}

// ToggleViral adds or removes a viral package.
func (s *State) ToggleViral(id string, price int64) (bool, error) {
	return toggleItem(&s.virals, s.catalog.Viral, "viral package", id, price)
}

func toggleItem(items *[]domain.PricedItem, lookup func(string) (catalog.Entry, bool), kind, id string, price int64) (bool, error) {
	if i := slices.IndexFunc(*items, func(it domain.PricedItem) bool { return it.ID == id }); i >= 0 {
		*items = slices.Delete(*items, i, i+1)
		return false, nil
	}
	entry, ok := lookup(id)
	if !ok {
		return false, fmt.Errorf("%w: %s %q", ErrUnknownItem, kind, id)
	}
	if price > MaxItemPrice {
		return false, fmt.Errorf("%w: %s %q at %d", ErrPriceOutOfRange, kind, id, price)
	}
	if price <= 0 {
		price = entry.Price
	}
	*items = append(*items, domain.PricedItem{ID: entry.ID, Name: entry.Name, Price: price})
	return true, nil
}

// AdjustCount shifts a restaurant metric's daily count by amount, clamped to the metric's
// daily range. An amount wider than the range is refused and the count is left as it was.
func (s *State) AdjustCount(metric string, amount int) (int, error) {
	counter, ok := s.restaurant.counts[metric]
	if !ok {
		return 0, fmt.Errorf("%w: metric %q", ErrUnknownItem, metric)
	}
	next, err := counter.Adjust(amount)
	if err != nil {
		return next, fmt.Errorf("%w: %s by %d", ErrCountOutOfRange, metric, amount)
	}
	return next, nil
}

func (s *State) count(metric string) int {
	if c, ok := s.restaurant.counts[metric]; ok {
		return c.Value
	}
	return 0
}

// ToggleRestaurantProduct adds or removes a restaurant traffic product.
func (s *State) ToggleRestaurantProduct(metric string) (bool, error) {
	if _, ok := s.catalog.Metric(metric); !ok {
		return false, fmt.Errorf("%w: metric %q", ErrUnknownItem, metric)
	}
	return toggleString(&s.restaurant.products, metric), nil
}

// ToggleAdditionalOption adds or removes a flat-fee restaurant add-on.
func (s *State) ToggleAdditionalOption(id string) (bool, error) {
	if _, ok := s.catalog.RestaurantOption(id); !ok {
		return false, fmt.Errorf("%w: restaurant option %q", ErrUnknownItem, id)
	}
	return toggleString(&s.restaurant.addOns, id), nil
}

func toggleString(values *[]string, v string) bool {
	if i := slices.Index(*values, v); i >= 0 {
		*values = slices.Delete(*values, i, i+1)
		return false
	}
	*values = append(*values, v)
	return true
}

// RestaurantPatch updates the free-text restaurant fields; nil fields are kept.
type RestaurantPatch struct {
	Keyword      *string
	BusinessName *string
	Phone        *string
}

// UpdateRestaurant applies patch.
func (s *State) UpdateRestaurant(patch RestaurantPatch) {
	if patch.Keyword != nil {
		s.restaurant.keyword = *patch.Keyword
	}
	if patch.BusinessName != nil {
		s.restaurant.businessName = *patch.BusinessName
	}
	if patch.Phone != nil {
		s.restaurant.phone = *patch.Phone
	}
}

// Total is the price of the current selection on the active track.
func (s *State) Total() int64 {
	if s.businessType == domain.BusinessTypeRestaurant {
		return s.RestaurantTotal()
	}
	return s.GeneralTotal()
}

// GeneralTotal sums selected products, options and viral packages.
func (s *State) GeneralTotal() int64 {
	var total int64
	for _, group := range [][]domain.PricedItem{s.products, s.options, s.virals} {
		for _, it := range group {
			total += it.Price
		}
	}
	return total
}

// RestaurantTotal prices each selected metric as daily count × campaign days × unit price,
// plus the flat add-ons.
func (s *State) RestaurantTotal() int64 {
	var total int64
	for _, line := range s.trafficLines() {
		total += line.TotalPrice
	}
	for _, id := range s.restaurant.addOns {
		if opt, ok := s.catalog.RestaurantOption(id); ok {
			total += opt.Price
		}
	}
	return total
}

func (s *State) trafficLines() []domain.TrafficLine {
	days := int64(s.catalog.Restaurant.CampaignDays)
	lines := make([]domain.TrafficLine, 0, len(s.restaurant.products))
	for _, id := range s.restaurant.products {
		m, ok := s.catalog.Metric(id)
		if !ok {
			continue
		}
		count := s.count(id)
		lines = append(lines, domain.TrafficLine{
			Type:       m.Label,
			DailyCount: count,
			UnitPrice:  m.UnitPrice,
			TotalPrice: int64(count) * days * m.UnitPrice,
		})
	}
	return lines
}

// HasAnySelection reports whether any general-track item is selected.
func (s *State) HasAnySelection() bool {
	return len(s.products) > 0 || len(s.options) > 0 || len(s.virals) > 0
}

// CanProceedToStep3 requires a platform and a non-blank main keyword.
func (s *State) CanProceedToStep3() bool {
	return len(s.platforms) > 0 && strings.TrimSpace(s.mainKeyword) != ""
}

// CanSubmitRestaurantOrder requires a product plus a business name and phone.
func (s *State) CanSubmitRestaurantOrder() bool {
	return len(s.restaurant.products) > 0 &&
		strings.TrimSpace(s.restaurant.businessName) != "" &&
		strings.TrimSpace(s.restaurant.phone) != ""
}

// Proceed snapshots the general-track selection for the order form.
func (s *State) Proceed() (domain.OrderData, error) {
	if s.businessType == domain.BusinessTypeRestaurant {
		return domain.OrderData{}, ErrWrongTrack
	}
	if !s.HasAnySelection() {
		return domain.OrderData{}, ErrNothingSelected
	}
	return domain.OrderData{
		BusinessType: domain.BusinessTypeGeneral,
		General: &domain.GeneralOrder{
			Platforms:     cloneList(s.platforms),
			MainKeyword:   s.mainKeyword,
			SubKeywords:   cloneList(s.subKeywords),
			Products:      cloneList(s.products),
			Options:       cloneList(s.options),
			ViralPackages: cloneList(s.virals),
			TotalPrice:    s.GeneralTotal(),
		},
	}, nil
}

// SubmitRestaurant snapshots the restaurant-track selection for the order form.
func (s *State) SubmitRestaurant() (domain.OrderData, error) {
	if !s.CanSubmitRestaurantOrder() {
		return domain.OrderData{}, ErrRestaurantIncomplete
	}
	return domain.OrderData{
		BusinessType: domain.BusinessTypeRestaurant,
		Restaurant: &domain.RestaurantOrder{
			Keyword:           s.restaurant.keyword,
			Products:          s.trafficLines(),
			AdditionalOptions: cloneList(s.restaurant.addOns),
			TotalPrice:        s.RestaurantTotal(),
			BusinessName:      s.restaurant.businessName,
			Phone:             s.restaurant.phone,
		},
	}, nil
}

func cloneList[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
