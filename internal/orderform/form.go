// Package orderform holds the order form of a single browser session: the customer fields,
// the consent checkboxes and the product snapshot handed over from the selection flow.
package orderform

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/format"
)

// Field names accepted by SetField.
const (
	FieldBusinessName      = "businessName"
	FieldOwnerName         = "ownerName"
	FieldBusinessNumber    = "businessNumber"
	FieldPhone             = "phone"
	FieldEmail             = "email"
	FieldPostalCode        = "postalCode"
	FieldAddress           = "address"
	FieldAddressDetail     = "addressDetail"
	FieldWebsiteURL        = "websiteUrl"
	FieldAdditionalRequest = "additionalRequest"
)

// Agreement names accepted by SetAgreement.
const (
	AgreementTerms     = "terms"
	AgreementPrivacy   = "privacy"
	AgreementMarketing = "marketing"
	AgreementAll       = "all"
)

const (
	MsgNoSnapshot         = "주문 정보가 없습니다. 상품을 먼저 선택해주세요."
	MsgUnreadableSnapshot = "주문 정보를 불러올 수 없습니다. 다시 시도해주세요."
	MsgBusinessNumber     = "사업자등록번호는 10자리여야 합니다."
	MsgEmail              = "올바른 이메일 주소를 입력해주세요."
	MsgAgreements         = "필수 약관에 동의해주세요."

	// NoSnapshotRedirect is where a visitor without a snapshot is sent.
	NoSnapshotRedirect      = "/products"
	NoSnapshotRedirectDelay = 2 * time.Second
)

var (
	ErrNoSnapshot         = errors.New("order form: no order snapshot")
	ErrUnreadableSnapshot = errors.New("order form: unreadable order snapshot")
	ErrUnknownField       = errors.New("order form: unknown field")
	ErrSubmitInProgress   = errors.New("order form: submission already in progress")
)

var requiredFields = []struct {
	field string
	label string
}{
	{FieldBusinessName, "상호명"},
	{FieldOwnerName, "대표자명"},
	{FieldPhone, "휴대폰 번호"},
	{FieldPostalCode, "우편번호"},
	{FieldAddress, "주소"},
}

// ValidationError names the field to focus and the message to show.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "order form: " + e.Message
	}
	return fmt.Sprintf("order form: %s: %s", e.Field, e.Message)
}

// Form is safe for concurrent use.
type Form struct {
	mu         sync.Mutex
	customer   domain.Customer
	agreements domain.Agreements
	snapshot   *domain.OrderData
	submitting bool
}

// New returns an empty form with no snapshot.
func New() *Form {
	return &Form{}
}

// Load parses the raw snapshot written by the selection flow. A nil or empty raw value
// means no snapshot was handed over.
func (f *Form) Load(raw []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = nil
	if len(raw) == 0 {
		return ErrNoSnapshot
	}
	var data domain.OrderData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreadableSnapshot, err)
	}
	f.snapshot = &data
	return nil
}

// Snapshot returns a copy of the loaded snapshot.
func (f *Form) Snapshot() (domain.OrderData, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshot == nil {
		return domain.OrderData{}, false
	}
	return *f.snapshot, true
}

// SetField stores value under name and returns what was stored. Phone and business
// number are reformatted as they are typed.
func (f *Form) SetField(name, value string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &f.customer
	switch name {
	case FieldBusinessName:
		c.BusinessName = value
	case FieldOwnerName:
		c.OwnerName = value
	case FieldBusinessNumber:
		value = format.BusinessNumber(value)
		c.BusinessNumber = value
	case FieldPhone:
		value = format.Phone(value)
		c.Phone = value
	case FieldEmail:
		c.Email = value
	case FieldPostalCode:
		c.Address.PostalCode = value
	case FieldAddress:
		c.Address.Address = value
	case FieldAddressDetail:
		c.Address.AddressDetail = value
	case FieldWebsiteURL:
		c.WebsiteURL = value
	case FieldAdditionalRequest:
		c.AdditionalRequest = value
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return value, nil
}

// SetAddress fills the postal code and address picked from an address search.
func (f *Form) SetAddress(postalCode, address string) {
	f.mu.Lock()
	f.customer.Address.PostalCode = postalCode
	f.customer.Address.Address = address
	f.mu.Unlock()
}

// SetAgreement sets one consent flag. Setting "all" behaves like ToggleAll.
func (f *Form) SetAgreement(name string, checked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch name {
	case AgreementTerms:
		f.agreements.Terms = checked
	case AgreementPrivacy:
		f.agreements.Privacy = checked
	case AgreementMarketing:
		f.agreements.Marketing = checked
	case AgreementAll:
		f.setAll(checked)
	default:
		return fmt.Errorf("%w: agreement %q", ErrUnknownField, name)
	}
	f.agreements = f.agreements.Sync()
	return nil
}

// ToggleAll sets every consent flag to checked.
func (f *Form) ToggleAll(checked bool) {
	f.mu.Lock()
	f.setAll(checked)
	f.agreements = f.agreements.Sync()
	f.mu.Unlock()
}

func (f *Form) setAll(checked bool) {
	f.agreements.Terms = checked
	f.agreements.Privacy = checked
	f.agreements.Marketing = checked
}

// Customer returns the current field values.
func (f *Form) Customer() domain.Customer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.customer
}

// Agreements returns the current consent flags.
func (f *Form) Agreements() domain.Agreements {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.agreements
}

// CanSubmit reports whether both required agreements are given.
func (f *Form) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.agreements.Terms && f.agreements.Privacy
}

// Validate stops at the first failing check and returns it as a *ValidationError.
func (f *Form) Validate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateLocked()
}

func (f *Form) validateLocked() error {
	c := f.customer
	values := map[string]string{
		FieldBusinessName: c.BusinessName,
		FieldOwnerName:    c.OwnerName,
		FieldPhone:        c.Phone,
		FieldPostalCode:   c.Address.PostalCode,
		FieldAddress:      c.Address.Address,
	}
	for _, req := range requiredFields {
		if strings.TrimSpace(values[req.field]) == "" {
			return &ValidationError{Field: req.field, Message: req.label + "을(를) 입력해주세요."}
		}
	}
	if c.BusinessNumber != "" && len(strings.ReplaceAll(c.BusinessNumber, "-", "")) != 10 {
		return &ValidationError{Field: FieldBusinessNumber, Message: MsgBusinessNumber}
	}
	if c.Email != "" && !format.IsEmail(c.Email) {
		return &ValidationError{Field: FieldEmail, Message: MsgEmail}
	}
	if !f.agreements.Terms || !f.agreements.Privacy {
		return &ValidationError{Message: MsgAgreements}
	}
	return nil
}

// BeginSubmit validates the form, marks it as submitting and returns the intake request,
// all under one lock so the payload is exactly what was validated. Only one submission may
// be in flight; EndSubmit reopens the form. orderedAt is now in UTC at millisecond precision.
func (f *Form) BeginSubmit(now time.Time) (domain.OrderPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitting {
		return domain.OrderPayload{}, ErrSubmitInProgress
	}
	if f.snapshot == nil {
		return domain.OrderPayload{}, ErrNoSnapshot
	}
	if err := f.validateLocked(); err != nil {
		return domain.OrderPayload{}, err
	}
	f.submitting = true
	return domain.OrderPayload{
		Customer:   f.customer,
		Marketing:  *f.snapshot,
		Agreements: f.agreements.Sync(),
		OrderedAt:  now.UTC().Truncate(time.Millisecond),
	}, nil
}

// EndSubmit clears the in-flight flag.
func (f *Form) EndSubmit() {
	f.mu.Lock()
	f.submitting = false
	f.mu.Unlock()
}

// Submitting reports whether a submission is in flight.
func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Reset clears fields, consents and the snapshot after a completed order.
func (f *Form) Reset() {
	f.mu.Lock()
	f.customer = domain.Customer{}
	f.agreements = domain.Agreements{}
	f.snapshot = nil
	f.mu.Unlock()
}
