package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflake_Prefixes(t *testing.T) {
	g, err := NewSnowflake(1)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(g.CorrelationCode(), "TXN_"))
	assert.True(t, strings.HasPrefix(g.CertificateNumber(), "CERT-"))
}

func TestSnowflake_UniqueUnderConcurrency(t *testing.T) {
	g, err := NewSnowflake(7)
	require.NoError(t, err)

	const workers, each = 8, 500
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*each)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				c := g.CorrelationCode()
				mu.Lock()
				seen[c] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*each)
}

func TestNewSnowflake_RejectsBadNode(t *testing.T) {
	_, err := NewSnowflake(4096)
	assert.Error(t, err)
}
