package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// BusinessType selects the pricing track.
type BusinessType string

const (
	BusinessTypeGeneral    BusinessType = "general"
	BusinessTypeRestaurant BusinessType = "restaurant"
)

// Valid reports whether t is one of the known tracks.
func (t BusinessType) Valid() bool {
	return t == BusinessTypeGeneral || t == BusinessTypeRestaurant
}

// DisplayName is the label shown on the order page.
func (t BusinessType) DisplayName() string {
	switch t {
	case BusinessTypeRestaurant:
		return "맛집업종"
	case BusinessTypeGeneral:
		return "일반업종"
	default:
		return "업종 미선택"
	}
}

// Platform is a marketing channel.
type Platform string

const (
	PlatformNaverPlace Platform = "naver_place"
	PlatformBlog       Platform = "blog"
	PlatformInstagram  Platform = "instagram"
)

// PricedItem is a selected product, option or viral package.
type PricedItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// TrafficLine is one per-day traffic product of the restaurant track.
type TrafficLine struct {
	Type       string `json:"type"`
	DailyCount int    `json:"dailyCount"`
	UnitPrice  int64  `json:"unitPrice"`
	TotalPrice int64  `json:"totalPrice"`
}

// GeneralOrder is the general-track part of a handoff snapshot.
type GeneralOrder struct {
	Platforms     []Platform   `json:"platforms"`
	MainKeyword   string       `json:"mainKeyword"`
	SubKeywords   []string     `json:"subKeywords"`
	Products      []PricedItem `json:"products"`
	Options       []PricedItem `json:"options"`
	ViralPackages []PricedItem `json:"viralPackages"`
	TotalPrice    int64        `json:"totalPrice"`
}

// RestaurantOrder is the restaurant-track part of a handoff snapshot.
type RestaurantOrder struct {
	Keyword           string        `json:"keyword"`
	Products          []TrafficLine `json:"products"`
	AdditionalOptions []string      `json:"additionalOptions"`
	TotalPrice        int64         `json:"totalPrice"`
	BusinessName      string        `json:"businessName"`
	Phone             string        `json:"phone"`
}

// OrderData is the snapshot handed from product selection to the order form. Exactly one
// of General and Restaurant is set, matching BusinessType. On the wire the track fields are
// flattened next to businessType.
type OrderData struct {
	BusinessType BusinessType
	General      *GeneralOrder
	Restaurant   *RestaurantOrder
}

// ErrMalformedOrderData is returned when a snapshot does not match its business type.
var ErrMalformedOrderData = errors.New("order data: malformed snapshot")

// TotalPrice returns the total recorded when the snapshot was taken.
func (d OrderData) TotalPrice() int64 {
	switch {
	case d.Restaurant != nil:
		return d.Restaurant.TotalPrice
	case d.General != nil:
		return d.General.TotalPrice
	default:
		return 0
	}
}

// MarshalJSON implements json.Marshaler.
func (d OrderData) MarshalJSON() ([]byte, error) {
	switch d.BusinessType {
	case BusinessTypeRestaurant:
		if d.Restaurant == nil {
			return nil, ErrMalformedOrderData
		}
		return json.Marshal(struct {
			BusinessType BusinessType `json:"businessType"`
			RestaurantOrder
		}{d.BusinessType, *d.Restaurant})
	case BusinessTypeGeneral:
		if d.General == nil {
			return nil, ErrMalformedOrderData
		}
		return json.Marshal(struct {
			BusinessType BusinessType `json:"businessType"`
			GeneralOrder
		}{d.BusinessType, *d.General})
	default:
		return nil, fmt.Errorf("%w: business type %q", ErrMalformedOrderData, d.BusinessType)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *OrderData) UnmarshalJSON(data []byte) error {
	var head struct {
		BusinessType BusinessType `json:"businessType"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	switch head.BusinessType {
	case BusinessTypeRestaurant:
		var r RestaurantOrder
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		*d = OrderData{BusinessType: head.BusinessType, Restaurant: &r}
	case BusinessTypeGeneral:
		var g GeneralOrder
		if err := json.Unmarshal(data, &g); err != nil {
			return err
		}
		*d = OrderData{BusinessType: head.BusinessType, General: &g}
	default:
		return fmt.Errorf("%w: business type %q", ErrMalformedOrderData, head.BusinessType)
	}
	return nil
}

// Address is the customer's business address.
type Address struct {
	PostalCode    string `json:"postalCode"`
	Address       string `json:"address"`
	AddressDetail string `json:"addressDetail"`
}

// Customer holds the fields entered on the order form.
type Customer struct {
	BusinessName      string  `json:"businessName"`
	OwnerName         string  `json:"ownerName"`
	BusinessNumber    string  `json:"businessNumber"`
	Phone             string  `json:"phone"`
	Email             string  `json:"email"`
	Address           Address `json:"address"`
	WebsiteURL        string  `json:"websiteUrl"`
	AdditionalRequest string  `json:"additionalRequest"`
}

// Agreements records the consent checkboxes. All mirrors Terms ∧ Privacy ∧ Marketing.
type Agreements struct {
	Terms     bool `json:"terms"`
	Privacy   bool `json:"privacy"`
	Marketing bool `json:"marketing"`
	All       bool `json:"all"`
}

// Sync recomputes All from the individual flags.
func (a Agreements) Sync() Agreements {
	a.All = a.Terms && a.Privacy && a.Marketing
	return a
}

// OrderPayload is the body sent to the order-intake endpoint. It is built once per submit.
type OrderPayload struct {
	Customer   Customer   `json:"customer"`
	Marketing  OrderData  `json:"marketing"`
	Agreements Agreements `json:"agreements"`
	OrderedAt  time.Time  `json:"orderedAt"`
}

// Lead is the free-analysis request captured from the landing page.
type Lead struct {
	BusinessName string `json:"businessName"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	URL          string `json:"url"`
	Message      string `json:"message"`
}

// SubmitResult is the response contract of both intake endpoints. Simulated marks a
// result fabricated locally because the endpoint could not be reached.
type SubmitResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	OrderID   string `json:"orderId,omitempty"`
	Simulated bool   `json:"-"`
}
