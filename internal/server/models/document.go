// Package models defines server-side data models persisted in the database.
package models

import (
	"fmt"
	"strings"
	"time"
)

// DocumentType enumerates the kinds of supporting documents a user can upload.
type DocumentType string

const (
	DocumentTypePayslip                   DocumentType = "PAYSLIP"
	DocumentTypeTaxDeclaration            DocumentType = "TAX_DECLARATION"
	DocumentTypeIncomeConsistency         DocumentType = "INCOME_CONSISTENCY"
	DocumentTypeLoanPayments              DocumentType = "LOAN_PAYMENTS"
	DocumentTypeBusinessRegistration      DocumentType = "BUSINESS_REGISTRATION"
	DocumentTypeBusinessIncomeDeclaration DocumentType = "BUSINESS_INCOME_DECLARATION"
)

// DocumentTypes lists every accepted type.
var DocumentTypes = []DocumentType{
	DocumentTypePayslip,
	DocumentTypeTaxDeclaration,
	DocumentTypeIncomeConsistency,
	DocumentTypeLoanPayments,
	DocumentTypeBusinessRegistration,
	DocumentTypeBusinessIncomeDeclaration,
}

// ParseDocumentType accepts a type name in any letter case, with either
// underscores or dashes ("tax-declaration", "TAX_DECLARATION").
func ParseDocumentType(s string) (DocumentType, error) {
	name := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for _, t := range DocumentTypes {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown document type %q", s)
}

// Valid reports whether t is one of DocumentTypes in canonical form.
func (t DocumentType) Valid() bool {
	parsed, err := ParseDocumentType(string(t))
	return err == nil && parsed == t
}

// KeyName is the lowercase form used inside storage keys.
func (t DocumentType) KeyName() string {
	return strings.ToLower(string(t))
}

// DocumentStatus is the review state of a document. The server only ever
// writes DocumentStatusPending; review happens elsewhere.
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "PENDING"
	DocumentStatusApproved DocumentStatus = "APPROVED"
	DocumentStatusRejected DocumentStatus = "REJECTED"
)

// Document describes an uploaded artifact. The bytes live in object storage
// under StorageKey; the row only holds the reference.
type Document struct {
	ID          string
	UserID      string
	Type        DocumentType
	StorageKey  string
	Status      DocumentStatus
	ContentType string
	Size        int64
	UploadedAt  time.Time
}
