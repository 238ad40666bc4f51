package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCaptureLogger(t *testing.T) {
	logger, buf := NewCaptureLogger()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.Debug("compiled", "n", i)
		}(i)
	}
	wg.Wait()

	assert.True(t, buf.Contains(`"msg":"compiled"`))
	assert.False(t, buf.Contains("missing"))
}

func TestNewTestLogger(t *testing.T) {
	logger := NewTestLogger(t)
	logger.Info("visible with -v")
}
