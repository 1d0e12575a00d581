package model

import (
	"strconv"
	"time"
)

// RecordHeader is the fixed column order of the records sheet.
var RecordHeader = []string{
	"timestamp", "submissionId", "fullName", "nationalId", "phone", "email",
	"bankName", "accountNumber", "accountType", "beneficiaryStatus",
	"beneficiary1Name", "beneficiary1Phone", "beneficiary1Instagram",
	"beneficiary2Name", "beneficiary2Phone", "beneficiary2Instagram",
	"investmentAmount", "comments", "isPoliticallyExposed", "exposedPosition",
	"utilityReceiptLocator", "signatureLocator", "idFrontLocator", "idBackLocator", "paymentReceiptLocator",
}

// AuditHeader колонки листа журнала
var AuditHeader = []string{"timestamp", "action", "submissionId", "documentLocator", "details"}

const (
	BeneficiaryStatusDeclared = "with_beneficiaries"
	BeneficiaryStatusNone     = "no_beneficiaries"
)

// SubmissionRecord строка, сохраняемая на каждую заявку
type SubmissionRecord struct {
	SubmissionID string
	ReceivedAt   time.Time
	Payload      SubmissionPayload
	Locators     map[DocumentKind]string
}

// Row renders the record in RecordHeader order. Images never reach the row, only locators.
func (r *SubmissionRecord) Row() []string {
	p := r.Payload
	b := p.Beneficiaries()

	status := BeneficiaryStatusNone
	if p.HasBeneficiaries {
		status = BeneficiaryStatusDeclared
	}

	position := ""
	if p.IsPoliticallyExposed {
		position = p.ExposedPosition
	}

	return []string{
		r.ReceivedAt.UTC().Format(time.RFC3339),
		r.SubmissionID,
		p.FullName,
		p.NationalID,
		p.Phone,
		p.Email,
		p.ResolvedBankName(),
		p.AccountNumber,
		string(p.AccountType),
		status,
		b[0].Name, b[0].Phone, b[0].Instagram,
		b[1].Name, b[1].Phone, b[1].Instagram,
		p.InvestmentAmount.StringFixed(2),
		p.Comments,
		strconv.FormatBool(p.IsPoliticallyExposed),
		position,
		r.Locators[DocumentUtilityReceipt],
		r.Locators[DocumentSignature],
		r.Locators[DocumentIDFront],
		r.Locators[DocumentIDBack],
		r.Locators[DocumentPaymentReceipt],
	}
}

// AuditAction событие журнала приёма
type AuditAction string

const (
	AuditRequestReceived       AuditAction = "request_received"
	AuditOriginDenied          AuditAction = "origin_denied"
	AuditRateLimited           AuditAction = "rate_limited"
	AuditPayloadRejected       AuditAction = "payload_rejected"
	AuditTokenRejected         AuditAction = "token_rejected"
	AuditValidationFailed      AuditAction = "validation_failed"
	AuditDocumentStored        AuditAction = "document_stored"
	AuditDocumentFailed        AuditAction = "document_failed"
	AuditRecordAppended        AuditAction = "record_appended"
	AuditRecordFailed          AuditAction = "record_failed"
	AuditNotificationSent      AuditAction = "notification_sent"
	AuditNotificationFailed    AuditAction = "notification_failed"
	AuditNotificationConfirmed AuditAction = "notification_confirmed"
)

// AuditEntry одна запись журнала
type AuditEntry struct {
	Timestamp       time.Time
	Action          AuditAction
	SubmissionID    string
	DocumentLocator string
	Details         string
}

// Row renders the entry in AuditHeader order.
func (e *AuditEntry) Row() []string {
	return []string{
		e.Timestamp.UTC().Format(time.RFC3339),
		string(e.Action),
		e.SubmissionID,
		e.DocumentLocator,
		e.Details,
	}
}

// SubmissionEvent is published after a record has been appended.
type SubmissionEvent struct {
	SubmissionID     string         `json:"submission_id"`
	ReceivedAt       time.Time      `json:"received_at"`
	FullName         string         `json:"full_name"`
	Email            string         `json:"email"`
	InvestmentAmount string         `json:"investment_amount"`
	Documents        int            `json:"documents"`
	FailedDocuments  []DocumentKind `json:"failed_documents,omitempty"`
}

// NotificationRequest asks the e-mail channel to notify the onboarding team.
type NotificationRequest struct {
	FullName         string `json:"full_name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	BankName         string `json:"bank_name"`
	InvestmentAmount string `json:"investment_amount"`
	Comments         string `json:"comments,omitempty"`
	SubmissionID     string `json:"submission_id,omitempty"`
}

// NotificationDelivered подтверждение от почтового канала
type NotificationDelivered struct {
	SubmissionID string `json:"submission_id"`
	Channel      string `json:"channel"`
	Error        string `json:"error,omitempty"`
}
