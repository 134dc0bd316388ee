package origination

import (
	"slices"

	"github.com/shopspring/decimal"
)

// ProductType is the financial product an application is for
type ProductType string

const (
	ProductBankGuarantee ProductType = "bank_guarantee"
	ProductLeasing       ProductType = "leasing"
	ProductFactoring     ProductType = "factoring"
	ProductCredit        ProductType = "credit"
	ProductTenderLoan    ProductType = "tender_loan"
)

// IsValid checks if the product type is known
func (p ProductType) IsValid() bool {
	_, ok := productCatalog[p]
	return ok
}

// String returns the string representation of ProductType
func (p ProductType) String() string {
	return string(p)
}

// Term limits in months
const (
	MinTermMonths = 1
	MaxTermMonths = 360
)

type productSpec struct {
	required []DocumentType
	optional []DocumentType
}

var productCatalog = map[ProductType]productSpec{
	ProductBankGuarantee: {
		required: []DocumentType{DocumentCharter, DocumentFinancialStatement, DocumentTenderDocumentation},
		optional: []DocumentType{DocumentPassport, DocumentOther},
	},
	ProductLeasing: {
		required: []DocumentType{DocumentCharter, DocumentFinancialStatement, DocumentLeaseObjectSpec},
		optional: []DocumentType{DocumentPassport, DocumentContract, DocumentOther},
	},
	ProductFactoring: {
		required: []DocumentType{DocumentCharter, DocumentFinancialStatement, DocumentReceivablesRegister},
		optional: []DocumentType{DocumentContract, DocumentOther},
	},
	ProductCredit: {
		required: []DocumentType{DocumentCharter, DocumentFinancialStatement, DocumentTaxReturn},
		optional: []DocumentType{DocumentPassport, DocumentOther},
	},
	ProductTenderLoan: {
		required: []DocumentType{DocumentCharter, DocumentTenderDocumentation},
		optional: []DocumentType{DocumentFinancialStatement, DocumentContract, DocumentOther},
	},
}

// AllProductTypes returns every product type
func AllProductTypes() []ProductType {
	return []ProductType{ProductBankGuarantee, ProductLeasing, ProductFactoring, ProductCredit, ProductTenderLoan}
}

// RequiredDocuments returns the document types that must be present and not
// rejected before an application leaves info_requested
func RequiredDocuments(p ProductType) []DocumentType {
	return slices.Clone(productCatalog[p].required)
}

// AcceptsDocument reports whether a document type may be attached to the product
func AcceptsDocument(p ProductType, t DocumentType) bool {
	entry, ok := productCatalog[p]
	if !ok {
		return false
	}
	return slices.Contains(entry.required, t) || slices.Contains(entry.optional, t)
}

// ValidAmount reports whether the requested amount is acceptable
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive()
}
