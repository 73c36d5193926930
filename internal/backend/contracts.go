package backend

import (
	"fmt"
	"strings"

	"pawcare/booking/internal/domain"
)

// AuthContext carries the caller's credentials to every API call. Nothing in
// this package reads tokens from ambient state.
type AuthContext struct {
	BearerToken string
	UserID      string
	Role        string
}

type WorkingHoursContract struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type AvailabilityResponse struct {
	ProviderID   string                           `json:"providerId"`
	WorkingHours map[string]*WorkingHoursContract `json:"workingHours"`
}

func (r AvailabilityResponse) WeeklyAvailability() (domain.WeeklyAvailability, error) {
	days := make(map[string]*[2]string, len(r.WorkingHours))
	for name, wh := range r.WorkingHours {
		if wh == nil {
			days[name] = nil
			continue
		}
		days[name] = &[2]string{wh.Start, wh.End}
	}
	return domain.ParseWeeklyAvailability(days)
}

type AppointmentContract struct {
	ID         string `json:"_id"`
	AltID      string `json:"id,omitempty"`
	ProviderID string `json:"providerId"`
	OwnerID    string `json:"ownerId,omitempty"`
	PetID      string `json:"petId,omitempty"`
	Date       string `json:"date"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	Status     string `json:"status,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

type AppointmentsResponse struct {
	Appointments []AppointmentContract `json:"appointments"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

// appointmentBody is what POST/PUT send; times go out in the API's stored
// 12-hour format.
type appointmentBody struct {
	ProviderID string `json:"providerId"`
	PetID      string `json:"petId,omitempty"`
	Date       string `json:"date"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	Notes      string `json:"notes,omitempty"`
}

type Appointment struct {
	ID         string
	ProviderID string
	OwnerID    string
	PetID      string
	Date       domain.DateOnly
	Start      domain.TimeOfDay
	End        domain.TimeOfDay
	Status     string
	Notes      string
}

func (a Appointment) Existing() domain.ExistingAppointment {
	return domain.ExistingAppointment{ID: a.ID, Date: a.Date, Start: a.Start, End: a.End}
}

func (a Appointment) Cancelled() bool {
	switch strings.ToLower(strings.TrimSpace(a.Status)) {
	case "cancelled", "canceled":
		return true
	}
	return false
}

type AppointmentRequest struct {
	ProviderID string
	PetID      string
	Date       domain.DateOnly
	Start      domain.TimeOfDay
	End        domain.TimeOfDay
	Notes      string
}

func (r AppointmentRequest) body() appointmentBody {
	return appointmentBody{
		ProviderID: r.ProviderID,
		PetID:      r.PetID,
		Date:       r.Date.String(),
		StartTime:  r.Start.Format12h(),
		EndTime:    r.End.Format12h(),
		Notes:      r.Notes,
	}
}

func (c AppointmentContract) toAppointment() (Appointment, error) {
	if strings.TrimSpace(c.ID) == "" {
		c.ID = strings.TrimSpace(c.AltID)
	}
	if c.ID == "" {
		return Appointment{}, fmt.Errorf("appointment without _id")
	}
	date, err := domain.ParseDate(c.Date)
	if err != nil {
		return Appointment{}, fmt.Errorf("appointment %s: %w", c.ID, err)
	}
	start, err := domain.ParseTimeOfDay(c.StartTime)
	if err != nil {
		return Appointment{}, fmt.Errorf("appointment %s: %w", c.ID, err)
	}
	end, err := domain.ParseTimeOfDay(c.EndTime)
	if err != nil {
		return Appointment{}, fmt.Errorf("appointment %s: %w", c.ID, err)
	}
	return Appointment{
		ID:         c.ID,
		ProviderID: c.ProviderID,
		OwnerID:    c.OwnerID,
		PetID:      c.PetID,
		Date:       date,
		Start:      start,
		End:        end,
		Status:     c.Status,
		Notes:      c.Notes,
	}, nil
}
