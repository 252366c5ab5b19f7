package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                  uuid.UUID  `json:"id"`
	FullName            string     `json:"full_name"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	Role                string     `json:"role"`
	IsActive            bool       `json:"is_active"`
	ResetTokenHash      *string    `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type Patient struct {
	ID               uuid.UUID  `json:"id"`
	OwnerUserID      *uuid.UUID `json:"owner_user_id"`
	FullName         string     `json:"full_name"`
	RelationToBooker *string    `json:"relation_to_booker"`
	BirthDate        *Date      `json:"birth_date"`
	Notes            *string    `json:"notes"`
	CreatedAt        time.Time  `json:"created_at"`
}

const (
	StatusRequested = "requested"
	StatusConfirmed = "confirmed"
)

// Appointment is the stored row. Description, Comment and Considerations are
// the decoded form of the single packed text column.
type Appointment struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	PatientID      *uuid.UUID `json:"patient_id"`
	Fields         Fields     `json:"-"`
	RequestedStart *time.Time `json:"requested_start"`
	RequestedEnd   *time.Time `json:"requested_end"`
	ScheduledStart *time.Time `json:"scheduled_start"`
	ScheduledEnd   *time.Time `json:"scheduled_end"`
	Status         string     `json:"status"`
	IsPaid         bool       `json:"is_paid"`
	PaidAt         *time.Time `json:"paid_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	User           *UserRef   `json:"user"`
}

type UserRef struct {
	FullName string `json:"full_name"`
}

const (
	EventCreated       = "created"
	EventStatusChanged = "status_changed"
	EventPaymentMarked = "payment_marked"
	EventUpdated       = "updated"
)

type AppointmentEvent struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	EventType     string    `json:"event_type"`
	OldValue      *string   `json:"old_value"`
	NewValue      *string   `json:"new_value"`
	Note          *string   `json:"note"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	KindEvent             = "event"
	KindManualAppointment = "manual_appointment"
	KindBlock             = "block"
)

func ValidKind(k string) bool {
	switch k {
	case KindEvent, KindManualAppointment, KindBlock:
		return true
	}
	return false
}

type PlannerItem struct {
	ID            uuid.UUID  `json:"id"`
	Kind          string     `json:"kind"`
	Title         string     `json:"title"`
	Note          *string    `json:"note"`
	StartAt       time.Time  `json:"start_at"`
	EndAt         time.Time  `json:"end_at"`
	AllDay        bool       `json:"all_day"`
	Location      *string    `json:"location"`
	CreatedBy     *uuid.UUID `json:"created_by"`
	AppointmentID *uuid.UUID `json:"appointment_id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DayOfWeek follows time.Weekday: 0 is Sunday.
type WeeklyAvailability struct {
	ID        uuid.UUID `json:"id"`
	DayOfWeek int       `json:"day_of_week"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type TimeOff struct {
	ID        uuid.UUID `json:"id"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	Reason    *string   `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
