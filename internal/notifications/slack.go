package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/0xPuncker/jobspec-watcher/pkg/types"
	"github.com/0xPuncker/jobspec-watcher/pkg/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type SlackService struct {
	logger     *logrus.Logger
	webhookURL string
	client     *http.Client
}

type SlackMessage struct {
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	Color  string  `json:"color,omitempty"`
	Text   string  `json:"text,omitempty"`
	Fields []Field `json:"fields,omitempty"`
	Footer string  `json:"footer,omitempty"`
	Ts     int64   `json:"ts,omitempty"`
}

type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// DefinitionChange describes an exported definition whose text changed
// between two polls.
type DefinitionChange struct {
	Kind       types.JobKind
	JobID      string
	JobType    types.JobType
	Format     string
	Previous   string
	Current    string
	StableFor  time.Duration
	DetectedAt time.Time
}

func NewSlackService(logger *logrus.Logger, webhookURL string) (*SlackService, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack webhook URL is not set")
	}

	return &SlackService{
		logger:     logger,
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (s *SlackService) SendDefinitionChange(change DefinitionChange) error {
	return s.SendSlackMessage(formatDefinitionChange(change))
}

func formatDefinitionChange(change DefinitionChange) *SlackMessage {
	subject := string(change.JobType)
	if subject == "" {
		subject = string(change.Kind)
	}

	added, removed := lineDelta(change.Previous, change.Current)

	color := "#36a64f"
	if removed > 0 {
		color = "#ffcc00"
	}

	fields := []Field{
		{
			Title: "Job ID",
			Value: change.JobID,
			Short: true,
		},
		{
			Title: "Kind",
			Value: string(change.Kind),
			Short: true,
		},
		{
			Title: "Format",
			Value: strings.ToUpper(change.Format),
			Short: true,
		},
		{
			Title: "Previous Definition Stable For",
			Value: utils.FormatDuration(change.StableFor),
			Short: true,
		},
		{
			Title: "Lines",
			Value: fmt.Sprintf("+%d / -%d", added, removed),
			Short: true,
		},
	}

	detectedAt := change.DetectedAt
	if detectedAt.IsZero() {
		detectedAt = time.Now()
	}

	return &SlackMessage{
		Text: fmt.Sprintf("📝 Job Definition Changed for %s job %s",
			cases.Title(language.English).String(subject),
			change.JobID),
		Attachments: []Attachment{
			{
				Color:  color,
				Text:   "```" + change.Current + "```",
				Fields: fields,
				Footer: fmt.Sprintf("Job: %s/%s | Detected: %s",
					change.Kind,
					change.JobID,
					detectedAt.Format("Mon, 02 Jan 2006 15:04:05 MST")),
				Ts: detectedAt.Unix(),
			},
		},
	}
}

// lineDelta counts lines present in current but not previous, and the
// reverse, treating each text as a multiset of lines.
func lineDelta(previous, current string) (added, removed int) {
	counts := make(map[string]int)
	for _, line := range strings.Split(previous, "\n") {
		counts[line]++
	}
	for _, line := range strings.Split(current, "\n") {
		if counts[line] > 0 {
			counts[line]--
			continue
		}
		added++
	}
	for _, n := range counts {
		removed += n
	}
	return added, removed
}

func (s *SlackService) SendSlackMessage(message *SlackMessage) error {
	if s.webhookURL == "" {
		return fmt.Errorf("slack webhook URL not configured")
	}

	jsonMessage, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("error marshaling slack message: %w", err)
	}

	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewBuffer(jsonMessage))
	if err != nil {
		return fmt.Errorf("error sending slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack API returned non-200 status code: %d", resp.StatusCode)
	}

	s.logger.Infof("Successfully sent message to Slack")
	return nil
}
