package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/oneviewsg/rental-ai-platform/pkg/logging"
)

// Appointment is a confirmed viewing held on the landlord's calendar.
type Appointment struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	ProspectPhone string    `json:"prospect_phone"`
	PropertyID    string    `json:"property_id,omitempty"`
	Title         string    `json:"title"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	ExternalID    string    `json:"external_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// BookingRequest describes the viewing to put on the calendar.
type BookingRequest struct {
	UserID        string
	ProspectPhone string
	PropertyID    string
	PropertyTitle string
	StartsAt      time.Time
	Duration      time.Duration
}

// BookingResult holds the stored appointment and whether the external
// calendar accepted it.
type BookingResult struct {
	Appointment               *Appointment
	CreatedInExternalCalendar bool
}

// ExternalCalendar pushes events to a third-party calendar. Implementations
// return the remote event id.
type ExternalCalendar interface {
	CreateEvent(ctx context.Context, appt *Appointment) (string, error)
}

// Service books viewings. The local record is authoritative; the external
// calendar push is best-effort and never fails the booking.
type Service struct {
	store    Store
	external ExternalCalendar
	logger   *logging.Logger
}

// NewService creates a booking service. external may be nil.
func NewService(store Store, external ExternalCalendar, logger *logging.Logger) *Service {
	if store == nil {
		panic("calendar: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, external: external, logger: logger}
}

// BookAppointment records the viewing and attempts the external calendar
// push.
func (s *Service) BookAppointment(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	if req.StartsAt.IsZero() {
		return nil, fmt.Errorf("calendar: start time required")
	}
	if req.Duration <= 0 {
		req.Duration = 45 * time.Minute
	}

	title := "Viewing"
	if req.PropertyTitle != "" {
		title = fmt.Sprintf("Viewing — %s", req.PropertyTitle)
	}

	appt := &Appointment{
		UserID:        req.UserID,
		ProspectPhone: req.ProspectPhone,
		PropertyID:    req.PropertyID,
		Title:         title,
		StartsAt:      req.StartsAt,
		EndsAt:        req.StartsAt.Add(req.Duration),
	}

	pushed := false
	if s.external != nil {
		externalID, err := s.external.CreateEvent(ctx, appt)
		if err != nil {
			s.logger.Warn("external calendar push failed, keeping local record", "user_id", req.UserID, "error", err)
		} else {
			appt.ExternalID = externalID
			pushed = true
		}
	}

	if err := s.store.Create(ctx, appt); err != nil {
		return nil, err
	}
	return &BookingResult{Appointment: appt, CreatedInExternalCalendar: pushed}, nil
}

// UpcomingForProspect lists the prospect's future viewings, soonest first.
func (s *Service) UpcomingForProspect(ctx context.Context, userID, prospectPhone string) ([]*Appointment, error) {
	return s.store.ListUpcoming(ctx, userID, prospectPhone, time.Now().UTC())
}
