package statusnotification

import "accelerator-admin/internal/models"

// Input is the process variable set started by the admin API.
type Input = models.NotificationRequest

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"` // "sent", "failed", "disabled"
	EmailStatus    string `json:"emailStatus"`
	SMSStatus      string `json:"smsStatus"`
	SentAt         string `json:"sentAt"` // ISO 8601
}
