package handler

import (
	"time"

	"github.com/yndnr/keyvault-go/internal/core/service"
	"github.com/yndnr/keyvault-go/internal/infra/buildinfo"
)

// Response wraps every JSON body except /metrics. Successful replies carry
// Code "OK" and Data; failures carry a KV- code and optional Details.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

func envelope(requestID, code, message string) *Response {
	return &Response{Code: code, Message: message, RequestID: requestID, Timestamp: time.Now().UnixMilli()}
}

// NewResponse wraps data in a success envelope.
func NewResponse(requestID string, data any) *Response {
	r := envelope(requestID, "OK", "Success")
	r.Data = data
	return r
}

// NewErrorResponse builds a failure envelope.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	r := envelope(requestID, code, message)
	r.Details = details
	return r
}

// HealthResponse is returned by /health and /ready.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// StatusSummary is returned by /admin/v1/status/summary.
type StatusSummary struct {
	Build  buildinfo.Info `json:"build"`
	Uptime string         `json:"uptime"`
	Totals service.Totals `json:"totals"`
}
