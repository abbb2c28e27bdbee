package preflight

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_CheckRemoteEmbedder_LocalModelSkipsCheck(t *testing.T) {
	checker := New()
	result := checker.CheckRemoteEmbedder(context.Background(), "", "local:test")

	assert.Equal(t, StatusPass, result.Status)
	assert.Equal(t, "remote_embedder", result.Name)
	assert.False(t, result.Required)
}

func TestChecker_CheckRemoteEmbedder_MissingHostWarns(t *testing.T) {
	checker := New()
	result := checker.CheckRemoteEmbedder(context.Background(), "", "remote:some-model")

	assert.Equal(t, StatusWarn, result.Status)
	assert.Contains(t, result.Message, "no remote host configured")
}

func TestChecker_CheckRemoteEmbedder_ReachableHostPasses(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	checker := New()
	result := checker.CheckRemoteEmbedder(context.Background(), "http://"+ln.Addr().String(), "remote:some-model")

	assert.Equal(t, StatusPass, result.Status)
	assert.Contains(t, result.Message, "reachable")
}

func TestChecker_CheckRemoteEmbedder_UnreachableHostWarns(t *testing.T) {
	checker := New()
	result := checker.CheckRemoteEmbedder(context.Background(), "http://127.0.0.1:1", "remote:some-model")

	assert.Equal(t, StatusWarn, result.Status)
	assert.False(t, result.Required)
}
