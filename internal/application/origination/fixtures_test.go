package origination

import (
	"testing"

	"github.com/finhub/backend/internal/domain/origination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	testBankID = uuid.New()
	testAgent  = origination.ActorContext{UserID: uuid.New(), Role: origination.RoleAgent}
	testAdmin  = origination.ActorContext{UserID: uuid.New(), Role: origination.RoleAdmin}
)

// newApp builds an application owned by testAgent in the given status.
// The bank guarantee requires charter, financial_statement and tender_documentation.
func newApp(t *testing.T, status origination.ApplicationStatus) *origination.Application {
	app, err := origination.NewApplication(origination.ProductBankGuarantee, decimal.NewFromInt(500_000), 12, testBankID, "", testAgent.Ref())
	require.NoError(t, err)
	app.Status = status
	app.ClearDomainEvents()
	return app
}

func withTicket(app *origination.Application, ticket, bankStatus string) *origination.Application {
	app.ExternalID = &ticket
	app.BankStatus = &bankStatus
	return app
}

func newDoc(t *testing.T, appID uuid.UUID, docType origination.DocumentType, version int, status origination.DocumentStatus) origination.Document {
	doc, err := origination.NewDocument(appID, docType, version, origination.FileRef{
		StorageKey:  DocumentKeyPrefix(appID) + string(docType) + "/file.pdf",
		FileName:    "file.pdf",
		ContentType: "application/pdf",
		Size:        10,
	}, testAgent.Ref())
	require.NoError(t, err)
	doc.Status = status
	return *doc
}

// completeDocs returns one document per required type with the given status
func completeDocs(t *testing.T, appID uuid.UUID, status origination.DocumentStatus) []origination.Document {
	var docs []origination.Document
	for _, docType := range origination.RequiredDocuments(origination.ProductBankGuarantee) {
		docs = append(docs, newDoc(t, appID, docType, 1, status))
	}
	return docs
}
