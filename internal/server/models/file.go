// Package models defines the records the gateway persists and returns.
package models

import "time"

// FileRecord describes one stored file. The encrypted payload itself lives in
// the blob store under BlobKey(FileID).
type FileRecord struct {
	// FileID is generated at upload and never changes.
	FileID string `json:"fileId" dynamodbav:"fileId"`
	// FileName is the client-supplied name, kept verbatim.
	FileName string `json:"fileName" dynamodbav:"fileName"`
	// ContentType is the declared MIME type; it is not sniffed.
	ContentType string `json:"contentType" dynamodbav:"contentType"`
	// Size is the plaintext length in bytes.
	Size int64 `json:"size" dynamodbav:"size"`
	// UploadedAt is set once at creation.
	UploadedAt time.Time `json:"uploadedAt" dynamodbav:"uploadedAt"`
	// Encrypted is always true for records created by the gateway.
	Encrypted bool `json:"encrypted" dynamodbav:"encrypted"`
}

// BlobKey returns the blob store key for fileID.
func BlobKey(fileID string) string {
	return "files/" + fileID
}

// DownloadResult is a decrypted payload together with the metadata needed to
// hand it back to the client.
type DownloadResult struct {
	Data        []byte
	ContentType string
	FileName    string
}
