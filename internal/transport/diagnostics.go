package transport

import (
	"io"
	"net/http"
	"strings"
	"time"
)

// maxDiagnosticBody caps how much of a failed response is read back
// for the status log.
const maxDiagnosticBody = 64 * 1024

// DiagnosticRecord is the best-effort description of a failed request.
type DiagnosticRecord struct {
	Description string
	URL         string
	RequestID   string
	Cause       string
	Body        string
}

// describeFailure builds and logs a diagnostic record for a failed
// request. Gathering diagnostics never fails: a problem while reading
// the response back is reduced to a Warn entry and the record ships
// without that piece. When resp is non-nil its body is consumed and
// closed here.
func (p *Pipeline) describeFailure(spec *RequestSpec, resp *http.Response, cause error, duration time.Duration, requestID string) *DiagnosticRecord {
	record := &DiagnosticRecord{
		Description: spec.Description,
		URL:         spec.URL,
		RequestID:   requestID,
	}
	if cause != nil {
		record.Cause = cause.Error()
	}

	if resp != nil {
		if record.Cause == "" {
			record.Cause = resp.Status
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxDiagnosticBody))
		_ = resp.Body.Close()
		if err != nil {
			p.logger.Warn("Could not read failed response body",
				"description", spec.Description,
				"url", spec.URL,
				"error", err,
			)
		} else {
			record.Body = strings.TrimSpace(string(body))
		}
	}

	p.logger.Error("Request failed",
		"description", record.Description,
		"url", record.URL,
		"cause", record.Cause,
		"body", record.Body,
		"duration", duration,
		"requestId", requestID,
	)

	return record
}
