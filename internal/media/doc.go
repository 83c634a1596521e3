// Package media defines the classification attached to an upload batch and
// the remote naming rules derived from it.
//
// Object names embed the job code, a two-letter file-type abbreviation, and
// the reserved sequence index, except for freight photos which are named by
// index alone. Container paths use literal pipe-delimited segments rooted at
// the customer folder.
package media
