// Package preflight provides readiness checks for the directories, queue
// database, and backend that uploads depend on.
//
// The CLI "jobmedia status" command runs every check and renders the results.
// A check never returns an error; failures are reported in Result.Detail.
package preflight
