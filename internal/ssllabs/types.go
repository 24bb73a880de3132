package ssllabs

import (
	"encoding/json"
	"strings"
)

// Assessment status values reported by the analyze endpoint.
const (
	StatusReady      = "READY"
	StatusError      = "ERROR"
	StatusInProgress = "IN_PROGRESS"
	StatusDNS        = "DNS"
)

// QuotaMessage is the error message substring the service uses to signal
// that the per-account concurrent assessment quota has been exceeded.
const QuotaMessage = "Concurrent assessment limit"

// Class is the classification of a single analyze response.
type Class int

const (
	// ClassInProgress covers any non-terminal status (IN_PROGRESS, DNS, unknown).
	ClassInProgress Class = iota
	// ClassTerminal means status READY or ERROR.
	ClassTerminal
	// ClassQuotaExceeded means the remote quota was hit; recoverable via backoff.
	ClassQuotaExceeded
	// ClassTransportFailure means the call itself failed (network, HTTP, decode).
	ClassTransportFailure
)

func (c Class) String() string {
	switch c {
	case ClassInProgress:
		return "in_progress"
	case ClassTerminal:
		return "terminal"
	case ClassQuotaExceeded:
		return "quota_exceeded"
	case ClassTransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// AssessmentResult is one full snapshot of an assessment. Every poll call
// produces a fresh snapshot; callers replace, never merge.
type AssessmentResult struct {
	Host          string     `json:"host"`
	Port          int        `json:"port,omitempty"`
	Protocol      string     `json:"protocol,omitempty"`
	Status        string     `json:"status"`
	StatusMessage string     `json:"statusMessage,omitempty"`
	StartTime     int64      `json:"startTime,omitempty"`
	TestTime      int64      `json:"testTime,omitempty"`
	Endpoints     []Endpoint `json:"endpoints,omitempty"`
	Errors        []APIError `json:"errors,omitempty"`
	Warnings      []string   `json:"warnings,omitempty"`

	// Raw is the verbatim response body, kept for export.
	Raw json.RawMessage `json:"-"`
}

// APIError is an error entry in the analyze response.
type APIError struct {
	Message string `json:"message"`
}

// Endpoint is one assessed IP endpoint of a host.
type Endpoint struct {
	IPAddress     string           `json:"ipAddress"`
	Grade         string           `json:"grade,omitempty"`
	StatusMessage string           `json:"statusMessage,omitempty"`
	Progress      int              `json:"progress,omitempty"`
	Details       *EndpointDetails `json:"details,omitempty"`
}

// EndpointDetails carries the subset of endpoint details the pipeline consumes.
type EndpointDetails struct {
	Cert      *Certificate `json:"cert,omitempty"`
	Protocols []Protocol   `json:"protocols,omitempty"`
	Suites    *SuiteList   `json:"suites,omitempty"`
	Chain     *Chain       `json:"chain,omitempty"`
}

// Certificate describes the leaf certificate of an endpoint.
type Certificate struct {
	Subject      string `json:"subject,omitempty"`
	IssuerLabel  string `json:"issuerLabel,omitempty"`
	NotBefore    int64  `json:"notBefore,omitempty"` // milliseconds since epoch
	NotAfter     int64  `json:"notAfter,omitempty"`  // milliseconds since epoch
	KeyAlgorithm string `json:"keyAlgorithm,omitempty"`
	KeySize      int    `json:"keySize,omitempty"`
}

// Protocol is a negotiated TLS protocol version.
type Protocol struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// SuiteList holds cipher suites in server handshake preference order,
// strongest first.
type SuiteList struct {
	List []Suite `json:"list,omitempty"`
}

// Suite is a single cipher suite.
type Suite struct {
	Name string `json:"name"`
}

// Chain carries certificate chain issue flags.
type Chain struct {
	Issues int `json:"issues"`
}

// Classify maps a well-formed analyze response to its class. Transport
// failures never reach this function; the client classifies those itself.
func Classify(r *AssessmentResult) Class {
	if r.IsQuotaExceeded() {
		return ClassQuotaExceeded
	}
	switch r.Status {
	case StatusReady, StatusError:
		return ClassTerminal
	}
	return ClassInProgress
}

// IsQuotaExceeded reports whether any error entry carries the quota message.
func (r *AssessmentResult) IsQuotaExceeded() bool {
	for _, e := range r.Errors {
		if strings.Contains(e.Message, QuotaMessage) {
			return true
		}
	}
	return false
}
