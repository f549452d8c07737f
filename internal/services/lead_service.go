package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/metric"

	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/format"
	"github.com/seungjae8520/hjjtest/internal/notify"
	"github.com/seungjae8520/hjjtest/internal/platform/events"
)

const (
	MsgLeadRequired = "필수 항목을 모두 입력해주세요."
	MsgLeadPhone    = "올바른 전화번호 형식으로 입력해주세요. (010-0000-0000)"
	MsgLeadEmail    = "올바른 이메일 형식으로 입력해주세요."
	MsgLeadSuccess  = "무료 분석 신청이 완료되었습니다. 빠른 시일 내에 연락드리겠습니다."
	MsgLeadFailed   = "신청 중 오류가 발생했습니다."
)

var (
	errLeadIntakeRequired = errors.New("lead service: intake client is required")
	errLeadClockRequired  = errors.New("lead service: clock is required")
)

var (
	// ErrLeadRejected indicates the intake endpoint answered success:false.
	ErrLeadRejected = errors.New("lead service: rejected by intake")
	// ErrLeadIntakeFailed indicates the intake endpoint could not be reached and the fallback is off.
	ErrLeadIntakeFailed = errors.New("lead service: intake failed")
)

type LeadServiceDeps struct {
	Intake    IntakeClient
	Publisher events.Publisher
	Notifier  notify.Notifier
	Clock     func() time.Time
	Logger    func(context.Context, string, map[string]any)
	Meter     metric.Meter
	// OptimisticFallback reports success when the intake endpoint is unreachable.
	OptimisticFallback bool
	IDGenerator        func() string
}

type leadService struct {
	intake    IntakeClient
	publisher events.Publisher
	notifier  notify.Notifier
	now       func() time.Time
	logger    func(context.Context, string, map[string]any)
	counter   submissionCounter
	fallback  bool
	newID     func() string
}

func NewLeadService(deps LeadServiceDeps) (LeadService, error) {
	if deps.Intake == nil {
		return nil, errLeadIntakeRequired
	}
	if deps.Clock == nil {
		return nil, errLeadClockRequired
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &leadService{
		intake:    deps.Intake,
		publisher: publisher,
		notifier:  deps.Notifier,
		now:       func() time.Time { return deps.Clock().UTC() },
		logger:    logger,
		counter:   newSubmissionCounter(deps.Meter, "lead"),
		fallback:  deps.OptimisticFallback,
		newID:     idGen,
	}, nil
}

// ValidateLead formats the phone number and checks the lead in form order.
func ValidateLead(lead domain.Lead) (domain.Lead, error) {
	lead.BusinessName = strings.TrimSpace(lead.BusinessName)
	lead.Name = strings.TrimSpace(lead.Name)
	lead.Email = strings.TrimSpace(lead.Email)
	lead.Phone = format.Phone(strings.TrimSpace(lead.Phone))

	switch {
	case lead.BusinessName == "":
		return lead, &ValidationError{Field: "businessName", Message: MsgLeadRequired}
	case lead.Name == "":
		return lead, &ValidationError{Field: "name", Message: MsgLeadRequired}
	case lead.Phone == "":
		return lead, &ValidationError{Field: "phone", Message: MsgLeadRequired}
	case !format.IsLeadPhone(lead.Phone):
		return lead, &ValidationError{Field: "phone", Message: MsgLeadPhone}
	case lead.Email != "" && !format.IsEmail(lead.Email):
		return lead, &ValidationError{Field: "email", Message: MsgLeadEmail}
	}
	return lead, nil
}

func (s *leadService) Submit(ctx context.Context, lead domain.Lead) (LeadSubmission, error) {
	lead, err := ValidateLead(lead)
	if err != nil {
		s.counter.record(ctx, outcomeInvalid)
		var verr *ValidationError
		if errors.As(err, &verr) {
			notify.Error(ctx, s.notifier, verr.Message)
		}
		return LeadSubmission{}, err
	}

	result, err := s.intake.SubmitLead(ctx, lead)
	if err != nil {
		if !s.fallback {
			s.counter.record(ctx, outcomeFailed)
			s.logger(ctx, "lead.submit.failed", map[string]any{"error": err.Error()})
			notify.Error(ctx, s.notifier, MsgLeadFailed)
			return LeadSubmission{}, fmt.Errorf("%w: %v", ErrLeadIntakeFailed, err)
		}
		s.logger(ctx, "lead.submit.fallback", map[string]any{"error": err.Error()})
		result = domain.SubmitResult{Success: true, Simulated: true}
	}

	if !result.Success {
		s.counter.record(ctx, outcomeRejected)
		message := strings.TrimSpace(result.Message)
		if message == "" {
			message = MsgLeadFailed
		}
		notify.Error(ctx, s.notifier, message)
		result.Message = message
		return LeadSubmission{Result: result}, ErrLeadRejected
	}

	if result.Simulated {
		s.counter.record(ctx, outcomeSimulated)
	} else {
		s.counter.record(ctx, outcomeSucceeded)
	}
	notify.Success(ctx, s.notifier, MsgLeadSuccess)

	event := events.Event{
		ID:         s.newID(),
		Type:       events.TypeLeadCaptured,
		OccurredAt: s.now(),
		Simulated:  result.Simulated,
		Payload:    lead,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger(ctx, "lead.event.failed", map[string]any{"error": err.Error()})
	}
	s.logger(ctx, "lead.captured", map[string]any{"simulated": result.Simulated})
	return LeadSubmission{Result: result}, nil
}
