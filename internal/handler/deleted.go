package handler

import "sync"

// DeletedMessage is one captured deleted chat message.
type DeletedMessage struct {
	Author  string
	Content string
}

// DeletedLog is a bounded, newest-first buffer of recently deleted messages.
// It is presentation-layer state: process-local, capped, never persisted.
type DeletedLog struct {
	mu       sync.Mutex
	entries  []DeletedMessage
	capacity int
}

// NewDeletedLog returns a log keeping at most capacity entries.
func NewDeletedLog(capacity int) *DeletedLog {
	return &DeletedLog{capacity: capacity}
}

// Record prepends an entry, evicting the oldest once full.
func (l *DeletedLog) Record(author, content string) {
	if content == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]DeletedMessage{{Author: author, Content: content}}, l.entries...)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
}

// Get returns the entry at the newest-first index.
func (l *DeletedLog) Get(index int) (DeletedMessage, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.entries) {
		return DeletedMessage{}, false
	}
	return l.entries[index], true
}

// Len returns the number of captured messages.
func (l *DeletedLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
