package services

import (
	"github.com/avery-dunn/entomosysbackend/models"
)

// TransitionStatus derives the status to persist for a modified detection.
// A detection cannot be confirmed while silently absorbing a geometry change:
// confirming with moved coordinates lands in user_edited_confirmed, which
// records both facts. Every other incoming status is persisted as given,
// regardless of the detection's current status.
func TransitionStatus(current, incoming string, coordinatesChanged bool) string {
	if incoming == models.DetectionStatusUserConfirmed && coordinatesChanged {
		return models.DetectionStatusUserEditedConfirmed
	}
	return incoming
}
