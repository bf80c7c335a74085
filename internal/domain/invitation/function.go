package invitation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nutrio/nutrio/internal/platform/functions"
	"github.com/nutrio/nutrio/pkg/apperr"
)

// FunctionName is the invocation name of the invitation function.
const FunctionName = "create-patient-invitation"

type invitePayload struct {
	PatientID string `json:"patient_id"`
	Email     string `json:"email"`
}

type inviteResult struct {
	InvitationID uuid.UUID `json:"invitation_id"`
	Email        string    `json:"email"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Function adapts Invite to the functions registry. Business-rule failures
// become logical errors in the envelope.
func Function(svc *Service) functions.Func {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		in, err := functions.Decode[invitePayload](raw)
		if err != nil {
			return nil, err
		}
		patientID, err := uuid.Parse(in.PatientID)
		if err != nil {
			return nil, functions.Logical("patient_id must be a valid id")
		}
		inv, err := svc.Invite(ctx, patientID, in.Email)
		if err != nil {
			if errors.Is(err, apperr.ErrInvalid) || errors.Is(err, apperr.ErrConflict) ||
				errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrForbidden) {
				return nil, functions.Logical("%s", err.Error())
			}
			return nil, err
		}
		return inviteResult{InvitationID: inv.ID, Email: inv.Email, ExpiresAt: inv.ExpiresAt}, nil
	}
}
