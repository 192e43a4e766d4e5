package dto

// WebhookPayload mirrors the WhatsApp Cloud API webhook envelope, reduced to
// the fields this service consumes.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	Messages []WebhookMessage `json:"messages"`
}

type WebhookMessage struct {
	From        string              `json:"from"`
	Type        string              `json:"type"`
	Text        *TextMessage        `json:"text,omitempty"`
	Document    *DocumentMessage    `json:"document,omitempty"`
	Interactive *InteractiveMessage `json:"interactive,omitempty"`
}

type TextMessage struct {
	Body string `json:"body"`
}

type DocumentMessage struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
}

type InteractiveMessage struct {
	Type        string       `json:"type"`
	ButtonReply *ButtonReply `json:"button_reply,omitempty"`
}

type ButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// InboundEvent is one normalized event extracted from a webhook delivery.
type InboundEvent struct {
	User     string
	Kind     EventKind
	Text     string // textMessage
	MediaID  string // documentUploaded
	ButtonID string // buttonPressed
}

type EventKind string

const (
	EventDocumentUploaded EventKind = "documentUploaded"
	EventTextMessage      EventKind = "textMessage"
	EventButtonPressed    EventKind = "buttonPressed"
)

// Events flattens the webhook envelope into the inbound events the service
// understands; unrecognized message types are dropped.
func (p *WebhookPayload) Events() []InboundEvent {
	var events []InboundEvent
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if event, ok := toEvent(msg); ok {
					events = append(events, event)
				}
			}
		}
	}
	return events
}

func toEvent(msg WebhookMessage) (InboundEvent, bool) {
	switch {
	case msg.Type == "document" && msg.Document != nil:
		return InboundEvent{
			User:    msg.From,
			Kind:    EventDocumentUploaded,
			MediaID: msg.Document.ID,
		}, true
	case msg.Type == "text" && msg.Text != nil:
		return InboundEvent{
			User: msg.From,
			Kind: EventTextMessage,
			Text: msg.Text.Body,
		}, true
	case msg.Type == "interactive" && msg.Interactive != nil && msg.Interactive.ButtonReply != nil:
		return InboundEvent{
			User:     msg.From,
			Kind:     EventButtonPressed,
			ButtonID: msg.Interactive.ButtonReply.ID,
		}, true
	}
	return InboundEvent{}, false
}
