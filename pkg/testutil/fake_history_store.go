package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tonyyueyu/optimization/pkg/chat"
)

// FakeHistoryStore is an in-memory HistoryStore with per-operation
// error injection.
type FakeHistoryStore struct {
	mu       sync.Mutex
	nextID   int
	threads  map[string]chat.Thread
	messages map[string][]chat.Message

	CreateErr error
	FetchErr  error
	AppendErr error
	DeleteErr error

	closeCalls []string
}

// NewFakeHistoryStore creates an empty in-memory store.
func NewFakeHistoryStore() *FakeHistoryStore {
	return &FakeHistoryStore{
		threads:  make(map[string]chat.Thread),
		messages: make(map[string][]chat.Message),
	}
}

func (f *FakeHistoryStore) Create(ctx context.Context, owner, title string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.nextID++
	id := fmt.Sprintf("thread-%d", f.nextID)
	f.threads[id] = chat.Thread{ID: id, Title: title, Owner: owner, LastUpdated: time.Now()}
	f.messages[id] = nil
	return id, nil
}

func (f *FakeHistoryStore) Fetch(ctx context.Context, owner, threadID string) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	if _, ok := f.threads[threadID]; !ok {
		return nil, fmt.Errorf("thread %s not found", threadID)
	}
	out := make([]chat.Message, len(f.messages[threadID]))
	copy(out, f.messages[threadID])
	return out, nil
}

func (f *FakeHistoryStore) Append(ctx context.Context, owner, threadID string, msg chat.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AppendErr != nil {
		return f.AppendErr
	}
	if _, ok := f.threads[threadID]; !ok {
		return fmt.Errorf("thread %s not found", threadID)
	}
	f.messages[threadID] = append(f.messages[threadID], msg)
	return nil
}

func (f *FakeHistoryStore) Delete(ctx context.Context, owner, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if _, ok := f.threads[threadID]; !ok {
		return fmt.Errorf("thread %s not found", threadID)
	}
	delete(f.threads, threadID)
	delete(f.messages, threadID)
	return nil
}

func (f *FakeHistoryStore) Close(owner, threadID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls = append(f.closeCalls, threadID)
}

// SeedThread installs a thread with messages, returning its id.
func (f *FakeHistoryStore) SeedThread(owner, title string, messages ...chat.Message) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("thread-%d", f.nextID)
	f.threads[id] = chat.Thread{ID: id, Title: title, Owner: owner, LastUpdated: time.Now()}
	f.messages[id] = append([]chat.Message(nil), messages...)
	return id
}

// Messages returns a copy of a thread's stored messages.
func (f *FakeHistoryStore) Messages(threadID string) []chat.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]chat.Message, len(f.messages[threadID]))
	copy(out, f.messages[threadID])
	return out
}

// ThreadCount reports how many threads exist.
func (f *FakeHistoryStore) ThreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.threads)
}

// CloseCalls returns the thread ids passed to Close.
func (f *FakeHistoryStore) CloseCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.closeCalls...)
}
