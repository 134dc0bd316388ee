package origination

import (
	"errors"
	"testing"

	"github.com/finhub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFile(name string) FileRef {
	return FileRef{
		StorageKey:  "applications/test/" + name,
		FileName:    name,
		ContentType: "application/pdf",
		Size:        1024,
	}
}

func newTestDocument(t *testing.T, appID uuid.UUID, docType DocumentType, version int) Document {
	doc, err := NewDocument(appID, docType, version, testFile(string(docType)+".pdf"), ActorRef{UserID: uuid.New(), Role: RoleClient})
	require.NoError(t, err)
	return *doc
}

func withStatus(doc Document, status DocumentStatus) Document {
	doc.Status = status
	return doc
}

func TestNewDocument(t *testing.T) {
	appID := uuid.New()

	t.Run("creates pending version", func(t *testing.T) {
		doc, err := NewDocument(appID, DocumentCharter, 1, testFile("charter.pdf"), ActorRef{UserID: uuid.New(), Role: RoleAgent})
		require.NoError(t, err)
		assert.Equal(t, DocumentStatusPending, doc.Status)
		assert.Equal(t, 1, doc.Version)
		assert.Nil(t, doc.ReviewedBy)
	})

	t.Run("rejects unsupported content type", func(t *testing.T) {
		file := testFile("run.exe")
		file.ContentType = "application/x-msdownload"
		_, err := NewDocument(appID, DocumentCharter, 1, file, ActorRef{})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("rejects version zero", func(t *testing.T) {
		_, err := NewDocument(appID, DocumentCharter, 0, testFile("a.pdf"), ActorRef{})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("accepts content type with parameters", func(t *testing.T) {
		file := testFile("scan.png")
		file.ContentType = "IMAGE/PNG; charset=binary"
		_, err := NewDocument(appID, DocumentPassport, 1, file, ActorRef{})
		assert.NoError(t, err)
	})
}

func TestDocument_Review(t *testing.T) {
	reviewer := ActorRef{UserID: uuid.New(), Role: RoleAdmin}

	t.Run("verifies pending document", func(t *testing.T) {
		doc := newTestDocument(t, uuid.New(), DocumentCharter, 1)
		require.NoError(t, doc.Review(DocumentStatusVerified, reviewer, ""))
		assert.Equal(t, DocumentStatusVerified, doc.Status)
		require.NotNil(t, doc.ReviewedBy)
		assert.Equal(t, reviewer, *doc.ReviewedBy)
		assert.NotNil(t, doc.ReviewedAt)
	})

	t.Run("cannot review twice", func(t *testing.T) {
		doc := newTestDocument(t, uuid.New(), DocumentCharter, 1)
		require.NoError(t, doc.Review(DocumentStatusRejected, reviewer, "blurry scan"))
		err := doc.Review(DocumentStatusVerified, reviewer, "")
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		assert.Equal(t, DocumentStatusRejected, doc.Status)
	})

	t.Run("pending is not an outcome", func(t *testing.T) {
		doc := newTestDocument(t, uuid.New(), DocumentCharter, 1)
		err := doc.Review(DocumentStatusPending, reviewer, "")
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestCurrentDocuments_ReturnsMaxVersionPerType(t *testing.T) {
	appID := uuid.New()
	docs := []Document{
		newTestDocument(t, appID, DocumentCharter, 2),
		newTestDocument(t, appID, DocumentCharter, 1),
		newTestDocument(t, appID, DocumentFinancialStatement, 1),
		newTestDocument(t, appID, DocumentCharter, 4),
		newTestDocument(t, appID, DocumentCharter, 3),
	}

	current := CurrentDocuments(docs)
	require.Len(t, current, 2)
	assert.Equal(t, 4, current[DocumentCharter].Version)
	assert.Equal(t, 1, current[DocumentFinancialStatement].Version)

	assert.Equal(t, 5, NextVersion(docs, DocumentCharter))
	assert.Equal(t, 1, NextVersion(docs, DocumentTaxReturn))
	assert.True(t, IsCurrent(docs, docs[3]))
	assert.False(t, IsCurrent(docs, docs[0]))
}

func TestRejectionsCleared(t *testing.T) {
	appID := uuid.New()
	required := []DocumentType{DocumentCharter, DocumentFinancialStatement}

	charter1 := newTestDocument(t, appID, DocumentCharter, 1)
	charter2 := newTestDocument(t, appID, DocumentCharter, 2)
	statement1 := newTestDocument(t, appID, DocumentFinancialStatement, 1)
	statement2 := newTestDocument(t, appID, DocumentFinancialStatement, 2)

	tests := []struct {
		name string
		docs []Document
		want bool
	}{
		{
			name: "all current verified",
			docs: []Document{withStatus(charter1, DocumentStatusVerified), withStatus(statement1, DocumentStatusVerified)},
			want: true,
		},
		{
			name: "rejected type replaced by pending version",
			docs: []Document{withStatus(charter1, DocumentStatusRejected), charter2, withStatus(statement1, DocumentStatusVerified)},
			want: true,
		},
		{
			name: "rejected type not yet replaced",
			docs: []Document{withStatus(charter1, DocumentStatusRejected), withStatus(statement1, DocumentStatusVerified)},
			want: false,
		},
		{
			name: "replacement also rejected",
			docs: []Document{withStatus(charter1, DocumentStatusRejected), withStatus(charter2, DocumentStatusRejected), statement1},
			want: false,
		},
		{
			name: "partial resolution keeps waiting",
			docs: []Document{
				withStatus(charter1, DocumentStatusRejected), charter2,
				withStatus(statement1, DocumentStatusRejected),
			},
			want: false,
		},
		{
			name: "both rejections resolved",
			docs: []Document{
				withStatus(charter1, DocumentStatusRejected), withStatus(charter2, DocumentStatusVerified),
				withStatus(statement1, DocumentStatusRejected), statement2,
			},
			want: true,
		},
		{
			name: "required type missing",
			docs: []Document{withStatus(charter1, DocumentStatusVerified)},
			want: false,
		},
		{
			name: "optional rejected type must also be replaced",
			docs: []Document{
				withStatus(charter1, DocumentStatusVerified), statement1,
				withStatus(newTestDocument(t, appID, DocumentOther, 1), DocumentStatusRejected),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RejectionsCleared(tt.docs, required))
		})
	}
}

func TestDocumentType_IsValid(t *testing.T) {
	for _, p := range AllProductTypes() {
		for _, dt := range RequiredDocuments(p) {
			assert.True(t, dt.IsValid(), dt)
		}
	}
	assert.True(t, DocumentOther.IsValid())
	assert.False(t, DocumentType("selfie").IsValid())
	assert.False(t, DocumentType("").IsValid())
}
