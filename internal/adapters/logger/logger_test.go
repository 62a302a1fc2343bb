package logger_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/depot/internal/adapters/logger"
)

// syncBuffer makes bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLogger_Levels(t *testing.T) {
	var buf syncBuffer
	log := logger.New()
	log.SetOutput(&buf)

	log.Info("resolved 3 packages")
	log.Warn("conflict on libA")
	log.Error(errors.New("registry unreachable"))

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "resolved 3 packages")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "conflict on libA")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "registry unreachable")
}

func TestLogger_ConcurrentUse(t *testing.T) {
	var buf syncBuffer
	log := logger.New()
	log.SetOutput(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info("message")
		}()
	}
	wg.Wait()

	assert.Contains(t, buf.String(), "message")
}
