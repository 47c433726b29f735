package models

import "encoding/json"

// Conversation roles accepted from callers.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Bounds enforced on every inbound conversation before it may go upstream.
const (
	MaxContentItems      = 60
	MaxPartsPerItem      = 8
	MaxTextLengthPerPart = 4000
	MaxTotalTextLength   = 30000
)

// Part is one text fragment of a conversation turn.
type Part struct {
	Text string `json:"text"`
}

// Content is one conversation turn: a role plus its ordered text fragments.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// GenerateRequest is the body accepted by the generate endpoint. The caller
// owns conversation history; the gateway keeps no copy of it. Fields other
// than Contents are generation configuration passed through to the upstream
// service untouched.
type GenerateRequest struct {
	Contents          []Content       `json:"contents"`
	SystemInstruction json.RawMessage `json:"systemInstruction,omitempty"`
	GenerationConfig  json.RawMessage `json:"generationConfig,omitempty"`
	SafetySettings    json.RawMessage `json:"safetySettings,omitempty"`
}
