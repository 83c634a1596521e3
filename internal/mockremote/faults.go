package mockremote

import (
	"strings"
	"sync"
)

// Endpoint names one backend call.
type Endpoint string

const (
	EndpointAllocate Endpoint = "allocate"
	EndpointUpload   Endpoint = "upload"
	EndpointMetadata Endpoint = "metadata"
	EndpointJobCodes Endpoint = "jobcodes"
)

// Fault describes an injected failure. A zero Status answers HTTP 200 with
// Success=false and Message in Errors; any other status is written as-is.
type Fault struct {
	Status  int
	Message string
}

// Call is what a fault rule sees about an incoming request.
type Call struct {
	Endpoint Endpoint
	// Key is the blob name for uploads, the blob path for metadata, and the
	// job code for allocations.
	Key string
}

// Rule decides whether a call fails. Returning nil lets the call succeed.
type Rule func(Call) *Fault

// FailTimes fails the first n calls it sees.
func FailTimes(n int, fault Fault) Rule {
	var (
		mu   sync.Mutex
		seen int
	)
	return func(Call) *Fault {
		mu.Lock()
		defer mu.Unlock()
		if seen >= n {
			return nil
		}
		seen++
		f := fault
		return &f
	}
}

// FailAlways fails every call.
func FailAlways(fault Fault) Rule {
	return func(Call) *Fault {
		f := fault
		return &f
	}
}

// FailMatching fails every call whose key contains substr.
func FailMatching(substr string, fault Fault) Rule {
	return func(c Call) *Fault {
		if !strings.Contains(c.Key, substr) {
			return nil
		}
		f := fault
		return &f
	}
}
