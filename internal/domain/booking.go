package domain

import (
	"errors"
	"time"
)

// Participant is one attendee attached to a booking.
type Participant struct {
	PartnerID int    `json:"partnerId,omitempty"`
	Name      string `json:"name"`
	Notes     string `json:"notes,omitempty"`
}

// BookingRequest is a request to reserve one slot.
type BookingRequest struct {
	Type         SessionType
	Service      string
	Interval     Interval
	Participants []Participant
}

func (r BookingRequest) Validate() error {
	if _, err := ParseSessionType(string(r.Type)); err != nil {
		return err
	}
	if r.Interval.Start.IsZero() || r.Interval.Stop.IsZero() {
		return NewError(KindBadRequest, "booking interval is required")
	}
	if !r.Interval.Start.Before(r.Interval.Stop) {
		return NewError(KindBadRequest, "booking interval must end after it starts")
	}
	if r.Service == "" {
		return NewError(KindBadRequest, "service name is required")
	}
	return nil
}

// BookingResult is the structured outcome handed back to the UI. Internal
// failures are reduced to a single reassuring message; raw backend error
// text never crosses this boundary.
type BookingResult struct {
	Success         bool             `json:"success"`
	BookingID       int64            `json:"bookingId,omitempty"`
	Message         string           `json:"message"`
	ErrorCode       string           `json:"errorCode,omitempty"`
	ConflictDetails []ConflictDetail `json:"conflictDetails,omitempty"`
}

const genericBookingMessage = "We could not complete your booking right now. Please try again in a moment."

// BookingSuccess builds the result for a confirmed reservation.
func BookingSuccess(id int64, start time.Time) BookingResult {
	return BookingResult{
		Success:   true,
		BookingID: id,
		Message:   "Your appointment is confirmed for " + start.Format("Monday, January 2 at 3:04 PM") + ".",
	}
}

// BookingFailure translates a classified error into the UI-facing result.
func BookingFailure(err error) BookingResult {
	kind := KindOf(err)
	switch kind {
	case KindConflict:
		return BookingResult{
			Success:         false,
			Message:         "The selected time slot is no longer available. Please choose another time.",
			ErrorCode:       string(KindConflict),
			ConflictDetails: ConflictsOf(err),
		}
	case KindBookingInProgress:
		return BookingResult{
			Success:   false,
			Message:   "A booking for this time slot is already being processed.",
			ErrorCode: string(KindBookingInProgress),
		}
	case KindBadRequest:
		msg := genericBookingMessage
		var de *Error
		if errors.As(err, &de) && de.Message != "" {
			msg = de.Message
		}
		return BookingResult{Success: false, Message: msg, ErrorCode: string(KindBadRequest)}
	case KindUnauthorized, KindForbidden:
		return BookingResult{
			Success:   false,
			Message:   "Please sign in again to book an appointment.",
			ErrorCode: string(kind),
		}
	case "":
		kind = KindUnknown
		fallthrough
	default:
		return BookingResult{Success: false, Message: genericBookingMessage, ErrorCode: string(kind)}
	}
}
