package anthropic

import "strings"

// Message roles on the wire.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MessageRequest carries one completion call. The SDK's param structs stay
// an implementation detail of the client.
type MessageRequest struct {
	Model       string
	MaxTokens   int64
	System      []SystemBlock
	Messages    []Message
	Temperature *float64
}

// SystemBlock is a system prompt segment. A non-nil CacheControl sets a
// cache breakpoint after the block.
type SystemBlock struct {
	Text         string
	CacheControl *CacheControl
}

// CacheControl configures prompt caching for a block.
type CacheControl struct {
	// TTL is "5m" or "1h".
	TTL string
}

// Message is one conversation turn.
type Message struct {
	Role    string
	Content string
}

// MessageResponse is the model's answer with usage accounting attached.
type MessageResponse struct {
	ID           string
	Model        string
	Content      []ContentBlock
	StopReason   string
	Usage        TokenUsage
	StopSequence string
}

// ContentBlock is one block of response content.
type ContentBlock struct {
	Type string
	Text string
}

// Text joins the non-empty text blocks of the response, one per line.
func (r *MessageResponse) Text() string {
	var parts []string
	for _, block := range r.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}
