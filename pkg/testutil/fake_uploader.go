package testutil

import (
	"context"
	"sync"
)

// FakeUploader implements the FileUploader interface for testing.
type FakeUploader struct {
	mu      sync.Mutex
	summary string
	err     error
	calls   []string
}

// NewFakeUploader creates a fake that returns the given summary.
func NewFakeUploader(summary string) *FakeUploader {
	return &FakeUploader{summary: summary}
}

// SetError makes Upload fail.
func (f *FakeUploader) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *FakeUploader) Upload(ctx context.Context, path, threadID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, path)
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

// Calls returns the uploaded paths in order.
func (f *FakeUploader) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
