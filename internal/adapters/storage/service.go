// Package storage provides presigned S3-compatible object storage for meeting attachments.
package storage

import "time"

// PresignedURL contains the URL and metadata for a presigned upload/download operation.
type PresignedURL struct {
	URL       string
	FileKey   string
	ExpiresAt time.Time
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketMeetingAttachments() string
	IsMinIOEnabled() bool
}
