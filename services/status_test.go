package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/avery-dunn/entomosysbackend/models"
)

func TestTransitionStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name               string
		current            string
		incoming           string
		coordinatesChanged bool
		want               string
	}{
		{
			name:     "confirm without moving keeps user_confirmed",
			current:  models.DetectionStatusModelGenerated,
			incoming: models.DetectionStatusUserConfirmed,
			want:     models.DetectionStatusUserConfirmed,
		},
		{
			name:               "confirm after moving records both facts",
			current:            models.DetectionStatusModelGenerated,
			incoming:           models.DetectionStatusUserConfirmed,
			coordinatesChanged: true,
			want:               models.DetectionStatusUserEditedConfirmed,
		},
		{
			name:               "confirming an already edited detection after moving",
			current:            models.DetectionStatusUserEdited,
			incoming:           models.DetectionStatusUserConfirmed,
			coordinatesChanged: true,
			want:               models.DetectionStatusUserEditedConfirmed,
		},
		{
			name:     "user_edited passes through unchanged",
			current:  models.DetectionStatusModelGenerated,
			incoming: models.DetectionStatusUserEdited,
			want:     models.DetectionStatusUserEdited,
		},
		{
			name:               "user_edited passes through even with moved coordinates",
			current:            models.DetectionStatusUserConfirmed,
			incoming:           models.DetectionStatusUserEdited,
			coordinatesChanged: true,
			want:               models.DetectionStatusUserEdited,
		},
		{
			name:     "user_created passes through unchanged",
			current:  models.DetectionStatusUserCreated,
			incoming: models.DetectionStatusUserCreated,
			want:     models.DetectionStatusUserCreated,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := TransitionStatus(tt.current, tt.incoming, tt.coordinatesChanged)
			assert.Equal(t, tt.want, got)
		})
	}
}
