package dto

import (
	"time"

	"github.com/noah-isme/report-compliance-api/internal/compliance"
)

// SimulationResponse is the email automation dry run.
type SimulationResponse struct {
	compliance.Simulation
}

// NoticePreviewResponse describes what a manual overdue-notice dispatch would send.
// ConfirmationToken is empty when there is nothing to send.
type NoticePreviewResponse struct {
	Plan              compliance.NoticePlan `json:"plan"`
	Message           string                `json:"message"`
	ConfirmationToken string                `json:"confirmationToken,omitempty"`
	ExpiresAt         *time.Time            `json:"expiresAt,omitempty"`
}

// NoticeDispatchRequest confirms a previously previewed dispatch.
type NoticeDispatchRequest struct {
	ConfirmationToken string `json:"confirmationToken" validate:"required"`
	Confirm           bool   `json:"confirm"`
}

// NoticeDispatchResponse reports what was handed to the dispatcher.
type NoticeDispatchResponse struct {
	Schools        int      `json:"schools"`
	Emails         int      `json:"emails"`
	Reports        int      `json:"reports"`
	SkippedSchools []string `json:"skippedSchools"`
	Message        string   `json:"message"`
}
