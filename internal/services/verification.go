package services

import (
	"fmt"

	"keywe-backend/internal/models"
	"keywe-backend/internal/utils"
)

// verificationTransitions lists, per target state, the states it may be entered from.
var verificationTransitions = map[models.VerificationStatus][]models.VerificationStatus{
	models.VerificationPending: {
		models.VerificationNone, models.VerificationDraft, models.VerificationRejected,
	},
	models.VerificationVerified: {
		models.VerificationNone, models.VerificationDraft, models.VerificationPending, models.VerificationRejected,
	},
	models.VerificationRejected: {
		models.VerificationNone, models.VerificationDraft, models.VerificationPending, models.VerificationVerified,
	},
}

// CanTransition reports whether a verification status may move from -> to.
func CanTransition(from, to models.VerificationStatus) bool {
	for _, allowed := range verificationTransitions[to] {
		if allowed == from {
			return true
		}
	}
	return false
}

func checkTransition(resource string, from, to models.VerificationStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	label := string(from)
	if label == "" {
		label = "unset"
	}
	return utils.NewValidationError(
		fmt.Sprintf("%s cannot move from %s to %s", resource, label, to),
		map[string][]string{"verification_status": {fmt.Sprintf("invalid transition from %s to %s", label, to)}},
	)
}
