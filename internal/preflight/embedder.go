package preflight

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"
)

// remoteDialTimeout bounds how long CheckRemoteEmbedder waits for a TCP
// connection to the configured remote embedding host.
const remoteDialTimeout = 2 * time.Second

// CheckRemoteEmbedder checks whether the configured remote embedding host
// (modelID "remote:<name>", spec.md §4.7) is reachable. Local ("local:"
// prefixed) models run in-process and have no reachability precondition, so
// the check passes trivially for them.
func (c *Checker) CheckRemoteEmbedder(ctx context.Context, remoteHost, modelID string) CheckResult {
	result := CheckResult{
		Name:     "remote_embedder",
		Required: false, // non-critical: folderd can still index with a local backend
	}

	if len(modelID) < 7 || modelID[:7] != "remote:" {
		result.Status = StatusPass
		result.Message = "local embedding backend, no remote host to check"
		return result
	}

	if remoteHost == "" {
		result.Status = StatusWarn
		result.Message = "remote model requested but no remote host configured"
		return result
	}

	u, err := url.Parse(remoteHost)
	if err != nil || u.Host == "" {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot parse remote host %q: %v", remoteHost, err)
		return result
	}

	dialer := net.Dialer{Timeout: remoteDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", u.Host)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("remote embedding host %s is unreachable: %v", u.Host, err)
		result.Details = "indexing with this model will fail until the remote host is reachable"
		return result
	}
	_ = conn.Close()

	result.Status = StatusPass
	result.Message = fmt.Sprintf("remote embedding host %s is reachable", u.Host)
	return result
}
