package notify

import (
	"strings"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
)

// SuitableJobPayload builds the data block of a suitable_job push.
// It always carries language, notification_type, job_id and immediate.
func SuitableJobPayload(job *domain.Job, data map[string]any, languageName string) map[string]any {
	payload := make(map[string]any, len(data)+4)
	for k, v := range data {
		payload[k] = v
	}
	payload["language"] = languageName
	payload["notification_type"] = domain.NotificationSuitableJob
	payload["job_id"] = job.ID
	payload["immediate"] = YesNo(job.Immediate)
	if _, ok := payload["duration"]; !ok {
		payload["duration"] = job.Duration
	}
	return payload
}

// SoundFor selects push sounds; only suitable_job pushes get booking sounds
func SoundFor(payload map[string]any) domain.Sound {
	if payload["notification_type"] != domain.NotificationSuitableJob {
		return domain.Sound{Android: "default", IOS: "default"}
	}
	if payload["immediate"] == "yes" {
		return domain.Sound{Android: "emergency_booking", IOS: "emergency_booking.mp3"}
	}
	return domain.Sound{Android: "normal_booking", IOS: "normal_booking.mp3"}
}

// Recipients converts users into push targets tagged by lower-cased email
func Recipients(users []domain.User) []domain.Recipient {
	out := make([]domain.Recipient, 0, len(users))
	for _, u := range users {
		out = append(out, domain.Recipient{UserID: u.ID, Email: strings.ToLower(u.Email)})
	}
	return out
}

// YesNo renders a flag the way push and email payloads expect it
func YesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func withJobID(payload map[string]any, jobID int64) map[string]any {
	out := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	out["job_id"] = jobID
	return out
}
