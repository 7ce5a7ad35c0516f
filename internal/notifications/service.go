package notifications

import (
	"fmt"
	"time"
)

type NotificationService struct {
	slackService *SlackService
}

func NewNotificationService(slackService *SlackService) *NotificationService {
	return &NotificationService{
		slackService: slackService,
	}
}

func (s *NotificationService) formatJobNotification(jobName string, status string, duration time.Duration, details string) *SlackMessage {
	var color string
	var icon string

	switch status {
	case "success":
		color = "good"
		icon = "✅"
	case "failed":
		color = "danger"
		icon = "❌"
	case "started":
		color = "warning"
		icon = "🚀"
	default:
		color = "#808080"
		icon = "ℹ️"
	}

	fields := []Field{
		{
			Title: "Job Name",
			Value: jobName,
			Short: true,
		},
		{
			Title: "Status",
			Value: status,
			Short: true,
		},
	}

	if duration > 0 {
		fields = append(fields, Field{
			Title: "Duration",
			Value: duration.Round(time.Millisecond).String(),
			Short: true,
		})
	}

	if details != "" {
		fields = append(fields, Field{
			Title: "Details",
			Value: details,
			Short: false,
		})
	}

	return &SlackMessage{
		Text: fmt.Sprintf("%s Job Status Update", icon),
		Attachments: []Attachment{
			{
				Color:  color,
				Fields: fields,
				Ts:     time.Now().Unix(),
			},
		},
	}
}

// SendJobNotification reports the outcome of a scheduled task run.
func (s *NotificationService) SendJobNotification(jobName string, status string, duration time.Duration, details string) error {
	message := s.formatJobNotification(jobName, status, duration, details)
	return s.slackService.SendSlackMessage(message)
}

func (s *NotificationService) SendDefinitionChange(change DefinitionChange) error {
	return s.slackService.SendDefinitionChange(change)
}
