package whatsapp

import (
	"fmt"
	"strconv"
	"time"
)

// WebhookPayload mirrors the envelope Meta posts to the webhook endpoint.
type WebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string       `json:"field"`
			Value webhookValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookValue struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		WaID    string `json:"wa_id"`
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
	} `json:"contacts"`
	Messages []struct {
		ID        string `json:"id"`
		From      string `json:"from"`
		Timestamp string `json:"timestamp"`
		Type      string `json:"type"`
		Text      *struct {
			Body string `json:"body"`
		} `json:"text"`
		Image    *mediaValue `json:"image"`
		Video    *mediaValue `json:"video"`
		Audio    *mediaValue `json:"audio"`
		Document *mediaValue `json:"document"`
		Location *struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"location"`
	} `json:"messages"`
	Statuses []struct {
		ID          string `json:"id"`
		RecipientID string `json:"recipient_id"`
		Status      string `json:"status"`
		Timestamp   string `json:"timestamp"`
		Errors      []struct {
			Code    int    `json:"code"`
			Title   string `json:"title"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"statuses"`
}

type mediaValue struct {
	ID      string `json:"id"`
	Link    string `json:"link"`
	Caption string `json:"caption"`
}

// InboundMessage is one customer message extracted from a webhook payload.
type InboundMessage struct {
	ExternalID string
	FromPhone  string
	FromName   string
	Timestamp  time.Time
	Type       string
	Content    string
	MediaURL   string
}

// StatusUpdate is one delivery receipt extracted from a webhook payload.
type StatusUpdate struct {
	ExternalID     string
	RecipientPhone string
	Status         string
	Timestamp      time.Time
	ErrorMessage   string
}

// ParseMessages extracts the inbound messages from a webhook payload. A
// payload may batch several entries and changes; non-message changes are
// skipped.
func ParseMessages(payload *WebhookPayload) []InboundMessage {
	var messages []InboundMessage

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			value := change.Value
			for i, msg := range value.Messages {
				inbound := InboundMessage{
					ExternalID: msg.ID,
					FromPhone:  msg.From,
					Timestamp:  parseUnixTimestamp(msg.Timestamp),
					Type:       msg.Type,
				}
				if i < len(value.Contacts) {
					inbound.FromName = value.Contacts[i].Profile.Name
				} else if len(value.Contacts) > 0 {
					inbound.FromName = value.Contacts[0].Profile.Name
				}

				switch msg.Type {
				case "text":
					if msg.Text != nil {
						inbound.Content = msg.Text.Body
					}
				case "image", "video", "audio", "document":
					media := msg.Image
					switch msg.Type {
					case "video":
						media = msg.Video
					case "audio":
						media = msg.Audio
					case "document":
						media = msg.Document
					}
					if media != nil {
						inbound.MediaURL = media.Link
						if media.Caption != "" {
							inbound.Content = media.Caption
						} else {
							inbound.Content = "[" + msg.Type + "]"
						}
					}
				case "location":
					if msg.Location != nil {
						inbound.Content = fmt.Sprintf("Location: %v, %v", msg.Location.Latitude, msg.Location.Longitude)
					}
				default:
					inbound.Content = "[" + msg.Type + "]"
				}

				messages = append(messages, inbound)
			}
		}
	}

	return messages
}

// ParseStatuses extracts the delivery receipts from a webhook payload.
func ParseStatuses(payload *WebhookPayload) []StatusUpdate {
	var updates []StatusUpdate

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, status := range change.Value.Statuses {
				update := StatusUpdate{
					ExternalID:     status.ID,
					RecipientPhone: status.RecipientID,
					Status:         status.Status,
					Timestamp:      parseUnixTimestamp(status.Timestamp),
				}
				if len(status.Errors) > 0 {
					update.ErrorMessage = fmt.Sprintf("%d: %s", status.Errors[0].Code, status.Errors[0].Title)
				}
				updates = append(updates, update)
			}
		}
	}

	return updates
}

// VerifyChallenge implements the hub.challenge handshake Meta performs when
// the webhook URL is registered. Returns the challenge to echo back, or an
// error when the token does not match.
func VerifyChallenge(mode, token, challenge, verifyToken string) (string, error) {
	if mode != "subscribe" {
		return "", fmt.Errorf("unsupported hub mode %q", mode)
	}
	if token != verifyToken {
		return "", fmt.Errorf("verify token mismatch")
	}
	return challenge, nil
}

func parseUnixTimestamp(s string) time.Time {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Now()
	}
	return time.Unix(sec, 0)
}
