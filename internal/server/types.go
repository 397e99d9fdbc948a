package server

import (
	"encoding/json"
	"time"

	"github.com/CK6170/calunc-go/models"
	"github.com/CK6170/calunc-go/modern"
)

type APIError struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	OK        bool      `json:"ok"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

type CalculatorsResponse struct {
	Kinds      []modern.Kind `json:"kinds"`
	Tolerances []string      `json:"tolerances"`
	// Fallback is the strategy used when an input names none.
	Fallback string `json:"fallback"`
}

// CalculateRequest is the body of POST /api/records and each /ws/calculate
// message.
type CalculateRequest struct {
	Kind  modern.Kind     `json:"kind"`
	Input json.RawMessage `json:"input"`
}

type RecordResponse struct {
	ID     string         `json:"id"`
	Kind   string         `json:"kind"`
	Report *models.Report `json:"report"`
}

type RecordSummary struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
}

type ConnectRequest struct {
	Port string `json:"port"`
	Baud int    `json:"baud"`
}

type ConnectResponse struct {
	Connected bool   `json:"connected"`
	Port      string `json:"port"`
	Serial    string `json:"serial,omitempty"`
}

type SampleRequest struct {
	Ignore int         `json:"ignore"`
	N      int         `json:"n"`
	Unit   models.Unit `json:"unit"`
}
