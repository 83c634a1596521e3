package remote

import (
	"fmt"
	"strings"
)

// AllocateRequest reserves NumImages consecutive sequence indices.
type AllocateRequest struct {
	JobCode   string  `json:"JobCode"`
	Type      string  `json:"Type"`
	Subtype   *string `json:"Subtype"`
	NumImages int     `json:"NumImages"`
}

// MetadataRecord registers an uploaded blob in the job-media database.
type MetadataRecord struct {
	JobCode       string  `json:"JobCode"`
	ContainerName string  `json:"ContainerName"`
	BlobPath      string  `json:"BlobPath"`
	Type          string  `json:"Type"`
	Subtype       *string `json:"Subtype"`
	FileExt       string  `json:"FileExt"`
	EmployeeID    string  `json:"EmployeeId"`
	Summary       string  `json:"Summary"`
	Size          int64   `json:"Size"`
}

// UnassignedEmployee is the literal the backend expects when no employee is attached.
const UnassignedEmployee = "NULL"

// BlobResult is the blob store's answer to an upload.
type BlobResult struct {
	BlobPath string `json:"blobPath,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
}

// JobCode is one ERP job code.
type JobCode struct {
	Code string `json:"Code"`
	Name string `json:"Name"`
}

// Message is one entry of an envelope's Errors list.
type Message struct {
	Message string `json:"Message"`
}

// Envelope is the response wrapper shared by every endpoint.
type Envelope[T any] struct {
	Success *bool     `json:"Success"`
	Payload T         `json:"Payload"`
	Errors  []Message `json:"Errors"`
}

// AllocatePayload is the Payload of an allocation response.
type AllocatePayload []struct {
	NewIndex int `json:"NewIndex"`
}

// RemoteError reports a response whose Success flag was missing or false.
type RemoteError struct {
	Op       string
	Status   int
	Messages []string
}

func (e *RemoteError) Error() string {
	msg := "Unknown error"
	if len(e.Messages) > 0 && strings.TrimSpace(e.Messages[0]) != "" {
		msg = e.Messages[0]
	}
	return fmt.Sprintf("%s rejected (HTTP %d): %s", e.Op, e.Status, msg)
}

// Reason returns the first backend message, or "Unknown error".
func (e *RemoteError) Reason() string {
	if len(e.Messages) > 0 && strings.TrimSpace(e.Messages[0]) != "" {
		return e.Messages[0]
	}
	return "Unknown error"
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned HTTP %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Op, e.Status, e.Body)
}
