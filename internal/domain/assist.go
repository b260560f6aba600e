package domain

import "context"

// Clip is a finished audio recording handed from the capture subsystem
// to the conversation controller.
type Clip struct {
	Data     []byte
	MIMEType string // e.g. "audio/wav"
	Filename string // filename hint for the upload, e.g. "recording.wav"
}

// TextExchangeRequest is the payload for a text exchange with the
// reasoning service.
type TextExchangeRequest struct {
	Message     string `json:"message"`
	Model       string `json:"model,omitempty"`
	CurrentStep string `json:"current_step,omitempty"`
	ChatHistory []Turn `json:"chat_history"`
}

// TextExchangeResponse is the service reply for a text exchange.
type TextExchangeResponse struct {
	Reply          string         `json:"reply"`
	ModelUsed      string         `json:"model_used,omitempty"`
	Usage          map[string]int `json:"usage,omitempty"`
	SafetyWarnings []string       `json:"safety_warnings,omitempty"`
}

// VoiceExchangeResponse is the service reply for a voice exchange.
// Transcript is the recognized user utterance; AudioURL, when present,
// points at a spoken rendition of the reply.
type VoiceExchangeResponse struct {
	Transcript     string         `json:"transcript"`
	Reply          string         `json:"reply"`
	AudioURL       string         `json:"audio_url,omitempty"`
	ModelUsed      string         `json:"model_used,omitempty"`
	Usage          map[string]int `json:"usage,omitempty"`
	SafetyWarnings []string       `json:"safety_warnings,omitempty"`
}

// EquipmentModel describes one entry of the service's model catalog.
type EquipmentModel struct {
	Model        string `json:"model"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Series       string `json:"series,omitempty"`
	Capacity     string `json:"capacity,omitempty"`
}

// AssistClient is the narrow request/response contract with the remote
// reasoning/transcription service. Calls are fire-once: no retry, the
// caller supplies the deadline through ctx.
type AssistClient interface {
	Text(ctx context.Context, req TextExchangeRequest) (*TextExchangeResponse, error)
	Voice(ctx context.Context, clip Clip, jctx JobContext) (*VoiceExchangeResponse, error)
	Models(ctx context.Context) ([]EquipmentModel, error)
	Healthy(ctx context.Context) error
}
