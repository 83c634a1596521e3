// Package remote is the HTTP client for the job-media backend.
//
// Every endpoint answers with a JSON envelope carrying a Success flag and an
// Errors list. The client decodes the envelope into typed payloads and turns a
// missing or false Success into a RemoteError tagged services.ErrLogical.
// Transport failures, non-2xx statuses, and undecodable bodies are tagged
// services.ErrTransient. The client never retries; callers wrap calls in
// retry.Executor.
package remote
