package selection

import (
	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/format"
)

// View is a read-only rendering of State for clients.
type View struct {
	Step              int                 `json:"step"`
	BusinessType      domain.BusinessType `json:"business_type"`
	Platforms         []PlatformView      `json:"platforms"`
	MainKeyword       string              `json:"main_keyword"`
	SubKeywords       []string            `json:"sub_keywords"`
	Products          []domain.PricedItem `json:"products"`
	Options           []domain.PricedItem `json:"options"`
	ViralPackages     []domain.PricedItem `json:"viral_packages"`
	Restaurant        RestaurantView      `json:"restaurant"`
	TotalPrice        int64               `json:"total_price"`
	FormattedTotal    string              `json:"formatted_total"`
	HasAnySelection   bool                `json:"has_any_selection"`
	CanProceedToStep3 bool                `json:"can_proceed_to_step3"`
	CanSubmit         bool                `json:"can_submit_restaurant_order"`
}

// PlatformView pairs a platform with its display name.
type PlatformView struct {
	ID   domain.Platform `json:"id"`
	Name string          `json:"name"`
}

// RestaurantView renders the restaurant track.
type RestaurantView struct {
	Keyword           string               `json:"keyword"`
	Products          []string             `json:"products"`
	Counts            map[string]int       `json:"counts"`
	AdditionalOptions []string             `json:"additional_options"`
	BusinessName      string               `json:"business_name"`
	Phone             string               `json:"phone"`
	Lines             []domain.TrafficLine `json:"lines"`
}

// View renders the current state.
func (s *State) View() View {
	platforms := make([]PlatformView, 0, len(s.platforms))
	for _, p := range s.platforms {
		name, ok := s.catalog.PlatformName(string(p))
		if !ok {
			name = string(p)
		}
		platforms = append(platforms, PlatformView{ID: p, Name: name})
	}
	counts := make(map[string]int, len(s.restaurant.counts))
	for k, c := range s.restaurant.counts {
		counts[k] = c.Value
	}
	total := s.Total()
	return View{
		Step:          s.step,
		BusinessType:  s.businessType,
		Platforms:     platforms,
		MainKeyword:   s.mainKeyword,
		SubKeywords:   cloneList(s.subKeywords),
		Products:      cloneList(s.products),
		Options:       cloneList(s.options),
		ViralPackages: cloneList(s.virals),
		Restaurant: RestaurantView{
			Keyword:           s.restaurant.keyword,
			Products:          cloneList(s.restaurant.products),
			Counts:            counts,
			AdditionalOptions: cloneList(s.restaurant.addOns),
			BusinessName:      s.restaurant.businessName,
			Phone:             s.restaurant.phone,
			Lines:             s.trafficLines(),
		},
		TotalPrice:        total,
		FormattedTotal:    format.KRW(total),
		HasAnySelection:   s.HasAnySelection(),
		CanProceedToStep3: s.CanProceedToStep3(),
		CanSubmit:         s.CanSubmitRestaurantOrder(),
	}
}
