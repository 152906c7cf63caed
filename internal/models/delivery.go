package models

import (
	"strings"
	"time"
)

// DeliveryStatus is the email delivery state of a report
type DeliveryStatus string

const (
	DeliveryStatusNotSent DeliveryStatus = "not_sent"
	DeliveryStatusSent    DeliveryStatus = "sent"
	DeliveryStatusError   DeliveryStatus = "error"
)

// DeliveryStatuses lists every delivery status in display order
var DeliveryStatuses = []DeliveryStatus{DeliveryStatusNotSent, DeliveryStatusSent, DeliveryStatusError}

const unknownDeliveryError = "unknown delivery error"

// EmailDelivery tracks the dispatch attempts of a report.
//
// Transitions:
//
//	not_sent -> sent | error
//	error    -> sent | error
//
// sent is terminal: CanResend is false and nothing here clears it.
type EmailDelivery struct {
	SendRequested bool           `db:"send_requested"`
	Status        DeliveryStatus `db:"email_status"`
	Attempts      int            `db:"email_attempts"`
	SentAt        *int64         `db:"email_sent_at"` // Unix timestamp
	LastError     string         `db:"email_last_error"`
}

// NewEmailDelivery returns the initial not_sent state
func NewEmailDelivery(sendRequested bool) EmailDelivery {
	return EmailDelivery{
		SendRequested: sendRequested,
		Status:        DeliveryStatusNotSent,
	}
}

// CanResend is true iff the report has not been delivered yet
func (d *EmailDelivery) CanResend() bool {
	return d.Status == DeliveryStatusNotSent || d.Status == DeliveryStatusError
}

// BeginAttempt counts a dispatch attempt. It must run exactly once per call
// that reaches the mail sender, before the outcome is known.
func (d *EmailDelivery) BeginAttempt() {
	d.Attempts++
}

// MarkSent records a successful delivery
func (d *EmailDelivery) MarkSent(at time.Time) {
	ts := at.Unix()
	d.Status = DeliveryStatusSent
	d.SentAt = &ts
	d.LastError = ""
}

// MarkFailed records a failed delivery; an empty message is replaced so that
// the error state always carries a description
func (d *EmailDelivery) MarkFailed(message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		message = unknownDeliveryError
	}
	d.Status = DeliveryStatusError
	d.LastError = message
}

// DeliveryResponse is the client view of EmailDelivery
type DeliveryResponse struct {
	SendRequested bool           `json:"send_requested"`
	Status        DeliveryStatus `json:"status"`
	Attempts      int            `json:"attempts"`
	SentAtIso     *string        `json:"sent_at,omitempty"`
	LastError     string         `json:"last_error,omitempty"`
}

// ToDeliveryResponse converts EmailDelivery to DeliveryResponse
func (d *EmailDelivery) ToDeliveryResponse() DeliveryResponse {
	resp := DeliveryResponse{
		SendRequested: d.SendRequested,
		Status:        d.Status,
		Attempts:      d.Attempts,
		LastError:     d.LastError,
	}
	if d.SentAt != nil {
		iso := time.Unix(*d.SentAt, 0).UTC().Format(time.RFC3339)
		resp.SentAtIso = &iso
	}
	return resp
}
