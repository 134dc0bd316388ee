package origination

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/finhub/backend/internal/domain/origination"
	"github.com/finhub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// uploadStates are the application statuses in which documents may be added
var uploadStates = []origination.ApplicationStatus{origination.StatusDraft, origination.StatusInfoRequested}

// reviewStates are the application statuses in which documents may be reviewed
var reviewStates = []origination.ApplicationStatus{
	origination.StatusPendingReview,
	origination.StatusSentToBank,
	origination.StatusInfoRequested,
}

var unsafeFileNameChars = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// DocumentKeyPrefix is the storage prefix of every document of an application
func DocumentKeyPrefix(applicationID uuid.UUID) string {
	return fmt.Sprintf("applications/%s/documents/", applicationID)
}

// DocumentKey builds a fresh storage key for a document upload
func DocumentKey(applicationID uuid.UUID, docType origination.DocumentType, fileName string) string {
	return DocumentKeyPrefix(applicationID) + string(docType) + "/" + uuid.NewString() + "-" + sanitizeFileName(fileName)
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFileNameChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}

// ReviewResult is the outcome of a document review
type ReviewResult struct {
	Document *origination.Document
	// Resolved reports that no unresolved rejection remains and every
	// required type has an acceptable current version
	Resolved bool
	Rejected bool
}

// DocumentStore keeps the append-only document versions of applications.
// File bytes go to ObjectStorage.
type DocumentStore struct {
	storage         ObjectStorage
	maxBytes        int64
	uploadURLExpiry time.Duration
	logger          *zap.Logger
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(storage ObjectStorage, cfg Config, logger *zap.Logger) *DocumentStore {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentStore{
		storage:         storage,
		maxBytes:        cfg.MaxDocumentBytes,
		uploadURLExpiry: cfg.UploadURLExpiry,
		logger:          logger,
	}
}

func (d *DocumentStore) validateFile(app *origination.Application, docType origination.DocumentType, fileName, contentType string, size int64) error {
	if !origination.AcceptsDocument(app.ProductType, docType) {
		return shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Document type %s is not accepted for %s", docType, app.ProductType))
	}
	if strings.TrimSpace(fileName) == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "File name cannot be empty")
	}
	if !origination.IsAllowedContentType(contentType) {
		return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Content type %q is not accepted", contentType))
	}
	if size > d.maxBytes {
		return shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("File is %d bytes, limit is %d", size, d.maxBytes))
	}
	return nil
}

// InitiateUpload issues a presigned upload URL for a future document version
func (d *DocumentStore) InitiateUpload(ctx context.Context, app *origination.Application, req InitiateUploadRequest) (*InitiateUploadResponse, error) {
	if !slices.Contains(uploadStates, app.Status) {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Documents cannot be uploaded while application is %s", app.Status))
	}
	if err := d.validateFile(app, req.Type, req.FileName, req.ContentType, req.Size); err != nil {
		return nil, err
	}

	key := DocumentKey(app.ID, req.Type, req.FileName)
	url, expiresAt, err := d.storage.GenerateUploadURL(ctx, key, req.ContentType, d.uploadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrExternalUnavailable, err)
	}
	return &InitiateUploadResponse{UploadURL: url, StorageKey: key, ExpiresAt: expiresAt}, nil
}

// Upload appends a new pending version of a document type.
// When req.Data is set the bytes are stored first; otherwise req.StorageKey
// must name an existing object under the application's prefix.
func (d *DocumentStore) Upload(ctx context.Context, repos TransactionalRepositories, app *origination.Application, req UploadDocumentRequest, uploadedBy origination.ActorRef) (*origination.Document, error) {
	if !slices.Contains(uploadStates, app.Status) {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Documents cannot be uploaded while application is %s", app.Status))
	}
	size := req.Size
	if req.Data != nil {
		size = int64(len(req.Data))
	}
	if err := d.validateFile(app, req.Type, req.FileName, req.ContentType, size); err != nil {
		return nil, err
	}

	docs, err := repos.DocumentRepo().FindByApplication(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	version := origination.NextVersion(docs, req.Type)

	file := origination.FileRef{
		FileName:    strings.TrimSpace(req.FileName),
		ContentType: req.ContentType,
		Size:        size,
	}
	stored := false
	if req.Data != nil {
		file.StorageKey = DocumentKey(app.ID, req.Type, req.FileName)
		if err := d.storage.Upload(ctx, file.StorageKey, req.Data, req.ContentType); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrExternalUnavailable, err)
		}
		stored = true
	} else {
		if err := d.verifyRegisteredObject(ctx, app.ID, req.StorageKey); err != nil {
			return nil, err
		}
		file.StorageKey = req.StorageKey
	}

	doc, err := origination.NewDocument(app.ID, req.Type, version, file, uploadedBy)
	if err == nil {
		err = repos.DocumentRepo().Create(ctx, doc)
	}
	if err != nil {
		if stored {
			d.Discard(ctx, file.StorageKey)
		}
		return nil, err
	}
	return doc, nil
}

func (d *DocumentStore) verifyRegisteredObject(ctx context.Context, applicationID uuid.UUID, key string) error {
	if key == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Either file data or a storage key is required")
	}
	if !strings.HasPrefix(key, DocumentKeyPrefix(applicationID)) || strings.Contains(key, "..") {
		return shared.NewDomainError(shared.CodeInvalidInput, "Storage key does not belong to this application")
	}
	exists, err := d.storage.ObjectExists(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrExternalUnavailable, err)
	}
	if !exists {
		return shared.NewDomainError(shared.CodeInvalidInput, "Uploaded object not found, upload the file first")
	}
	return nil
}

// Discard removes stored bytes that ended up without a document row
func (d *DocumentStore) Discard(ctx context.Context, key string) {
	if err := d.storage.DeleteObject(context.WithoutCancel(ctx), key); err != nil {
		d.logger.Warn("failed to delete orphaned document object",
			zap.String("storage_key", key),
			zap.Error(err),
		)
	}
}

// Review sets the verdict on the current version of a document type
func (d *DocumentStore) Review(ctx context.Context, repos TransactionalRepositories, app *origination.Application, documentID uuid.UUID, req ReviewDocumentRequest, reviewer origination.ActorRef) (*ReviewResult, error) {
	if !slices.Contains(reviewStates, app.Status) {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Documents cannot be reviewed while application is %s", app.Status))
	}

	docs, err := repos.DocumentRepo().FindByApplication(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(docs, func(doc origination.Document) bool { return doc.ID == documentID })
	if idx < 0 {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Document not found")
	}
	doc := &docs[idx]
	if !origination.IsCurrent(docs, *doc) {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Version %d of %s has been superseded", doc.Version, doc.Type))
	}

	if err := doc.Review(req.Outcome, reviewer, req.Comment); err != nil {
		return nil, err
	}
	if err := repos.DocumentRepo().UpdateReview(ctx, doc); err != nil {
		return nil, err
	}

	reviewed := *doc
	return &ReviewResult{
		Document: &reviewed,
		Resolved: origination.RejectionsCleared(docs, origination.RequiredDocuments(app.ProductType)),
		Rejected: req.Outcome == origination.DocumentStatusRejected,
	}, nil
}

// Current returns the highest version per document type of an application
func (d *DocumentStore) Current(ctx context.Context, repos TransactionalRepositories, applicationID uuid.UUID) (map[origination.DocumentType]origination.Document, error) {
	docs, err := repos.DocumentRepo().FindByApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return origination.CurrentDocuments(docs), nil
}
