package origination

import (
	"fmt"
	"strings"
	"time"

	"github.com/finhub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DocumentType is the kind of supporting document
type DocumentType string

const (
	DocumentCharter             DocumentType = "charter"
	DocumentFinancialStatement  DocumentType = "financial_statement"
	DocumentTenderDocumentation DocumentType = "tender_documentation"
	DocumentContract            DocumentType = "contract"
	DocumentPassport            DocumentType = "passport"
	DocumentTaxReturn           DocumentType = "tax_return"
	DocumentLeaseObjectSpec     DocumentType = "lease_object_spec"
	DocumentReceivablesRegister DocumentType = "receivables_register"
	DocumentOther               DocumentType = "other"
)

// String returns the string representation of DocumentType
func (t DocumentType) String() string {
	return string(t)
}

// IsValid checks if the document type is known
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentCharter, DocumentFinancialStatement, DocumentTenderDocumentation,
		DocumentContract, DocumentPassport, DocumentTaxReturn,
		DocumentLeaseObjectSpec, DocumentReceivablesRegister, DocumentOther:
		return true
	}
	return false
}

// DocumentStatus is the review state of one document version
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "pending"
	DocumentStatusVerified DocumentStatus = "verified"
	DocumentStatusRejected DocumentStatus = "rejected"
)

// IsValid checks if the document status is known
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusPending, DocumentStatusVerified, DocumentStatusRejected:
		return true
	}
	return false
}

// IsReviewOutcome reports whether s can be set by a reviewer
func (s DocumentStatus) IsReviewOutcome() bool {
	return s == DocumentStatusVerified || s == DocumentStatusRejected
}

// allowedContentTypes is the upload whitelist
var allowedContentTypes = map[string]bool{}

func init() {
	for _, ct := range []string{
		"application/pdf",
		"image/jpeg",
		"image/png",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/zip",
	} {
		allowedContentTypes[ct] = true
	}
}

// IsAllowedContentType reports whether a file with this content type may be stored.
// Parameters such as "; charset=binary" are ignored.
func IsAllowedContentType(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return allowedContentTypes[strings.ToLower(strings.TrimSpace(mediaType))]
}

// FileRef points at bytes held by the storage collaborator
type FileRef struct {
	StorageKey  string `json:"storage_key"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Validate checks the reference is usable
func (f FileRef) Validate() error {
	if strings.TrimSpace(f.StorageKey) == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Storage key cannot be empty")
	}
	if strings.TrimSpace(f.FileName) == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "File name cannot be empty")
	}
	if f.Size < 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "File size cannot be negative")
	}
	return nil
}

// Document is one uploaded version of a document type. Replacement appends
// a new version; rows are never deleted.
type Document struct {
	shared.BaseEntity
	ApplicationID uuid.UUID
	Type          DocumentType
	Status        DocumentStatus
	Version       int
	File          FileRef
	UploadedBy    ActorRef
	ReviewedBy    *ActorRef
	ReviewComment string
	ReviewedAt    *time.Time
}

// NewDocument creates a pending document version
func NewDocument(applicationID uuid.UUID, docType DocumentType, version int, file FileRef, uploadedBy ActorRef) (*Document, error) {
	if applicationID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Application ID cannot be empty")
	}
	if version < 1 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Document version must start at 1")
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	if !IsAllowedContentType(file.ContentType) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Content type %q is not accepted", file.ContentType))
	}

	return &Document{
		BaseEntity:    shared.NewBaseEntity(),
		ApplicationID: applicationID,
		Type:          docType,
		Status:        DocumentStatusPending,
		Version:       version,
		File:          file,
		UploadedBy:    uploadedBy,
	}, nil
}

// Review records a reviewer's verdict. Only pending documents can be reviewed.
func (d *Document) Review(outcome DocumentStatus, reviewer ActorRef, comment string) error {
	if !outcome.IsReviewOutcome() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Review outcome must be verified or rejected")
	}
	if d.Status != DocumentStatusPending {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Document version %d of %s is already %s", d.Version, d.Type, d.Status))
	}
	now := d.Touch()
	d.Status = outcome
	d.ReviewedBy = &reviewer
	d.ReviewComment = strings.TrimSpace(comment)
	d.ReviewedAt = &now
	return nil
}

// CurrentDocuments returns the highest version per document type
func CurrentDocuments(docs []Document) map[DocumentType]Document {
	current := make(map[DocumentType]Document)
	for _, doc := range docs {
		if existing, ok := current[doc.Type]; !ok || doc.Version > existing.Version {
			current[doc.Type] = doc
		}
	}
	return current
}

// NextVersion returns the version number the next upload of docType receives
func NextVersion(docs []Document, docType DocumentType) int {
	maxVersion := 0
	for _, doc := range docs {
		if doc.Type == docType && doc.Version > maxVersion {
			maxVersion = doc.Version
		}
	}
	return maxVersion + 1
}

// IsCurrent reports whether doc is the highest version of its type in docs
func IsCurrent(docs []Document, doc Document) bool {
	return NextVersion(docs, doc.Type) == doc.Version+1
}

// RejectionsCleared reports whether every type that was ever rejected now has
// a newer pending or verified version, and every required type has a current
// version that is not rejected.
func RejectionsCleared(docs []Document, required []DocumentType) bool {
	current := CurrentDocuments(docs)

	lastRejected := make(map[DocumentType]int)
	for _, doc := range docs {
		if doc.Status == DocumentStatusRejected && doc.Version > lastRejected[doc.Type] {
			lastRejected[doc.Type] = doc.Version
		}
	}
	for docType, rejectedVersion := range lastRejected {
		cur := current[docType]
		if cur.Version <= rejectedVersion || cur.Status == DocumentStatusRejected {
			return false
		}
	}

	for _, docType := range required {
		cur, ok := current[docType]
		if !ok || cur.Status == DocumentStatusRejected {
			return false
		}
	}
	return true
}
