package orderform

import (
	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/format"
)

// View is the form as rendered to the client.
type View struct {
	Customer         domain.Customer   `json:"customer"`
	Agreements       domain.Agreements `json:"agreements"`
	Order            *domain.OrderData `json:"order,omitempty"`
	BusinessTypeName string            `json:"business_type_name"`
	TotalPrice       int64             `json:"total_price"`
	FormattedTotal   string            `json:"formatted_total"`
	CanSubmit        bool              `json:"can_submit"`
	Submitting       bool              `json:"submitting"`
}

// View renders the form.
func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := View{
		Customer:         f.customer,
		Agreements:       f.agreements,
		BusinessTypeName: domain.BusinessType("").DisplayName(),
		CanSubmit:        f.agreements.Terms && f.agreements.Privacy,
		Submitting:       f.submitting,
	}
	if f.snapshot != nil {
		snap := *f.snapshot
		v.Order = &snap
		v.BusinessTypeName = snap.BusinessType.DisplayName()
		v.TotalPrice = snap.TotalPrice()
	}
	v.FormattedTotal = format.KRW(v.TotalPrice)
	return v
}
