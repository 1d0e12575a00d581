package model

import "time"

// DocumentKind логический слот документа
type DocumentKind string

const (
	DocumentIDFront        DocumentKind = "id_front"
	DocumentIDBack         DocumentKind = "id_back"
	DocumentPaymentReceipt DocumentKind = "payment_receipt"
	DocumentUtilityReceipt DocumentKind = "utility_receipt"
	DocumentSignature      DocumentKind = "signature"
)

// DocumentOrder is the order in which images of one submission are stored.
var DocumentOrder = []DocumentKind{
	DocumentIDFront,
	DocumentIDBack,
	DocumentPaymentReceipt,
	DocumentUtilityReceipt,
	DocumentSignature,
}

// Field returns the JSON payload field carrying the image for kind.
func (k DocumentKind) Field() string {
	switch k {
	case DocumentIDFront:
		return "idFrontImage"
	case DocumentIDBack:
		return "idBackImage"
	case DocumentPaymentReceipt:
		return "paymentReceiptImage"
	case DocumentUtilityReceipt:
		return "utilityReceiptImage"
	case DocumentSignature:
		return "signatureImage"
	}
	return ""
}

// Valid reports whether k is one of DocumentOrder.
func (k DocumentKind) Valid() bool {
	return k.Field() != ""
}

// StoredDocument одно сохранённое изображение
type StoredDocument struct {
	SubmissionID string       `json:"submission_id"`
	Kind         DocumentKind `json:"kind"`
	MimeType     string       `json:"mime_type"`
	ByteSize     int64        `json:"byte_size"`
	Locator      string       `json:"locator"`
	URL          string       `json:"url"`
	CreatedAt    time.Time    `json:"created_at"`
}
