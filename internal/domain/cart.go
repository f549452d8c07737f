package domain

import "time"

// LineItem is a priced, quantified entry in a visitor's cart. Quantity is always at least 1.
type LineItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// Subtotal returns price × quantity.
func (i LineItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// Cart is the durable per-visitor cart.
type Cart struct {
	VisitorID string
	Items     []LineItem
	UpdatedAt time.Time
}

// Total sums every line's subtotal.
func (c Cart) Total() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}

// Clone returns a deep copy.
func (c Cart) Clone() Cart {
	out := c
	if c.Items != nil {
		out.Items = append([]LineItem(nil), c.Items...)
	}
	return out
}

// UserProfile is the durable per-visitor profile record.
type UserProfile struct {
	BusinessType string    `json:"businessType"`
	Region       string    `json:"region"`
	BusinessName string    `json:"businessName"`
	Phone        string    `json:"phone"`
	UpdatedAt    time.Time `json:"-"`
}

// ProfilePatch carries the fields to merge into a UserProfile; nil fields are left untouched.
type ProfilePatch struct {
	BusinessType *string
	Region       *string
	BusinessName *string
	Phone        *string
}

// Apply merges the patch into profile.
func (p ProfilePatch) Apply(profile UserProfile) UserProfile {
	if p.BusinessType != nil {
		profile.BusinessType = *p.BusinessType
	}
	if p.Region != nil {
		profile.Region = *p.Region
	}
	if p.BusinessName != nil {
		profile.BusinessName = *p.BusinessName
	}
	if p.Phone != nil {
		profile.Phone = *p.Phone
	}
	return profile
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.BusinessType == nil && p.Region == nil && p.BusinessName == nil && p.Phone == nil
}
