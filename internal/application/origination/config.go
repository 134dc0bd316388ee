package origination

import "time"

// Config holds the policy knobs of the origination services
type Config struct {
	// MaxInfoRequestCycles limits info_requested rounds started by reviewers; 0 = unlimited
	MaxInfoRequestCycles int
	// StalledAfter flags sent_to_bank applications with no status change for this long; 0 disables
	StalledAfter time.Duration
	// BankRequestTimeout bounds every call to the bank system
	BankRequestTimeout time.Duration
	// ChatPageSize is the page size used when iterating chat messages
	ChatPageSize int
	// MaxAttachmentBytes caps chat attachments
	MaxAttachmentBytes int64
	// MaxDocumentBytes caps documents uploaded through the API
	MaxDocumentBytes int64
	// UploadURLExpiry is the validity of presigned upload URLs
	UploadURLExpiry time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		MaxInfoRequestCycles: 5,
		StalledAfter:         72 * time.Hour,
		BankRequestTimeout:   10 * time.Second,
		ChatPageSize:         100,
		MaxAttachmentBytes:   10 << 20,
		MaxDocumentBytes:     25 << 20,
		UploadURLExpiry:      15 * time.Minute,
	}
}

// withDefaults fills zero values that have no "disabled" meaning
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BankRequestTimeout <= 0 {
		c.BankRequestTimeout = d.BankRequestTimeout
	}
	if c.ChatPageSize <= 0 {
		c.ChatPageSize = d.ChatPageSize
	}
	if c.MaxAttachmentBytes <= 0 {
		c.MaxAttachmentBytes = d.MaxAttachmentBytes
	}
	if c.MaxDocumentBytes <= 0 {
		c.MaxDocumentBytes = d.MaxDocumentBytes
	}
	if c.UploadURLExpiry <= 0 {
		c.UploadURLExpiry = d.UploadURLExpiry
	}
	return c
}
