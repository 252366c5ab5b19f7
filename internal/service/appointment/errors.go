package appointment

import "clinic-api/internal/apperr"

var (
	ErrDescriptionRequired = apperr.Validation("description is required")
	ErrScheduleRequired    = apperr.Validation("scheduled_start and scheduled_end are required")
	ErrScheduleOrder       = apperr.Validation("scheduled_end must be after scheduled_start")
	ErrRequestedOrder      = apperr.Validation("requested_end must be after requested_start")
	ErrUnknownUser         = apperr.Validation("user not found")
	ErrUnknownPatient      = apperr.Validation("patient not found")
	ErrNotFound            = apperr.NotFound("appointment not found")
	ErrNotOwner            = apperr.Forbidden("not allowed to access this appointment")
	ErrAdminOnly           = apperr.Forbidden("admin only")
	ErrBusy                = apperr.Conflict("appointment is being modified, retry")
)
