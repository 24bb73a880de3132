// Package report turns assessment snapshots into the downstream export
// shapes: a fixed-column summary row, a flattened key-path workbook, the
// combined per-run text stream and a PDF digest.
package report

import (
	"strconv"
	"strings"
	"time"

	"github.com/vhnguyen/sslsweep/internal/ssllabs"
)

// Placeholder fills columns that cannot be derived from the payload.
const Placeholder = "N/A"

// NoHTTPSGrade marks hosts that failed the reachability gate.
const NoHTTPSGrade = "No HTTPS"

// Columns is the summary CSV header, in order.
var Columns = []string{
	"Host", "IP", "Grade", "Status", "Protocols",
	"Strongest Cipher", "Weakest Cipher", "All Ciphers",
	"Cert Subject", "Cert Issuer", "Valid From", "Valid To",
	"Key Algorithm", "Key Size", "Chain Issues",
}

// Summary is one host's flat summary record.
type Summary struct {
	Host            string
	IP              string
	Grade           string
	Status          string
	Protocols       string
	StrongestCipher string
	WeakestCipher   string
	AllCiphers      string
	CertSubject     string
	CertIssuer      string
	ValidFrom       string
	ValidTo         string
	KeyAlgorithm    string
	KeySize         string
	ChainIssues     string
}

// Row returns the record's columns in header order.
func (s Summary) Row() []string {
	return []string{
		s.Host, s.IP, s.Grade, s.Status, s.Protocols,
		s.StrongestCipher, s.WeakestCipher, s.AllCiphers,
		s.CertSubject, s.CertIssuer, s.ValidFrom, s.ValidTo,
		s.KeyAlgorithm, s.KeySize, s.ChainIssues,
	}
}

// NoHTTPS is the placeholder record for hosts with no open HTTPS port.
func NoHTTPS(host string) Summary {
	s := degraded(host)
	s.Grade = NoHTTPSGrade
	return s
}

func degraded(host string) Summary {
	return Summary{
		Host: host, IP: Placeholder, Grade: Placeholder, Status: Placeholder,
		Protocols: Placeholder, StrongestCipher: Placeholder,
		WeakestCipher: Placeholder, AllCiphers: Placeholder,
		CertSubject: Placeholder, CertIssuer: Placeholder,
		ValidFrom: Placeholder, ValidTo: Placeholder,
		KeyAlgorithm: Placeholder, KeySize: Placeholder,
		ChainIssues: Placeholder,
	}
}

// FromResult extracts the summary columns from a snapshot. Missing or
// malformed sections degrade to placeholders; the full payload stays
// available to the export stream regardless.
func FromResult(res *ssllabs.AssessmentResult) Summary {
	if res == nil {
		return degraded(Placeholder)
	}

	s := degraded(res.Host)
	if s.Host == "" {
		s.Host = Placeholder
	}
	if res.Status != "" {
		s.Status = res.Status
	}
	if len(res.Endpoints) == 0 {
		return s
	}

	ep := res.Endpoints[0]
	if ep.IPAddress != "" {
		s.IP = ep.IPAddress
	}
	if ep.Grade != "" {
		s.Grade = ep.Grade
	}
	if ep.Details == nil {
		return s
	}
	d := ep.Details

	if cert := d.Cert; cert != nil {
		if cert.Subject != "" {
			s.CertSubject = cert.Subject
		}
		if cert.IssuerLabel != "" {
			s.CertIssuer = cert.IssuerLabel
		}
		s.ValidFrom = formatMillis(cert.NotBefore)
		s.ValidTo = formatMillis(cert.NotAfter)
		if cert.KeyAlgorithm != "" {
			s.KeyAlgorithm = cert.KeyAlgorithm
		}
		if cert.KeySize > 0 {
			s.KeySize = strconv.Itoa(cert.KeySize)
		}
	}

	if protos := formatProtocols(d.Protocols); protos != "" {
		s.Protocols = protos
	}

	if d.Suites != nil && len(d.Suites.List) > 0 {
		names := make([]string, 0, len(d.Suites.List))
		for _, suite := range d.Suites.List {
			if suite.Name != "" {
				names = append(names, suite.Name)
			}
		}
		if len(names) > 0 {
			// Handshake preference order: strongest first.
			s.StrongestCipher = names[0]
			s.WeakestCipher = names[len(names)-1]
			s.AllCiphers = strings.Join(names, ", ")
		}
	}

	if d.Chain != nil {
		s.ChainIssues = strconv.Itoa(d.Chain.Issues)
	}

	return s
}

func formatProtocols(protocols []ssllabs.Protocol) string {
	parts := make([]string, 0, len(protocols))
	for _, p := range protocols {
		label := strings.TrimSpace(strings.TrimSpace(p.Name) + " " + strings.TrimSpace(p.Version))
		if label != "" {
			parts = append(parts, label)
		}
	}
	return strings.Join(parts, ", ")
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return Placeholder
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
}
