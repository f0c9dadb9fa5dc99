package platform

import (
	"context"
	"sync"
)

// ActionKind names a recorded side effect.
type ActionKind string

const (
	ActionSend   ActionKind = "send"
	ActionReply  ActionKind = "reply"
	ActionDelete ActionKind = "delete"
)

// Action is one side effect captured by a Recorder.
type Action struct {
	Kind      ActionKind
	ChannelID int64
	MessageID int64 // Target message for reply and delete
	Text      string
}

// Recorder is an in-memory Messenger and History for testing.
type Recorder struct {
	mu       sync.Mutex
	channels map[int64]*Channel
	previous map[int64]*Message
	deleted  map[int64]bool
	actions  []Action

	// Err, when set, is returned by every side-effecting call instead of
	// recording it.
	Err error
}

// NewRecorder creates a recorder with the given cached channels.
func NewRecorder(channels ...*Channel) *Recorder {
	r := &Recorder{
		channels: make(map[int64]*Channel),
		previous: make(map[int64]*Message),
		deleted:  make(map[int64]bool),
	}
	for _, c := range channels {
		r.channels[c.ID] = c
	}
	return r
}

// AddChannel caches a channel.
func (r *Recorder) AddChannel(c *Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[c.ID] = c
}

// SetPrevious records prev as the message before msg.
func (r *Recorder) SetPrevious(msg, prev *Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.previous[msg.ID] = prev
}

// Channel returns a cached channel.
func (r *Recorder) Channel(id int64) (*Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.channels[id]
	return c, ok
}

// Send records a send.
func (r *Recorder) Send(ctx context.Context, channelID int64, text string) error {
	return r.record(Action{Kind: ActionSend, ChannelID: channelID, Text: text})
}

// Reply records a reply. Replying to a deleted message fails.
func (r *Recorder) Reply(ctx context.Context, msg *Message, text string) error {
	r.mu.Lock()
	gone := r.deleted[msg.ID]
	r.mu.Unlock()
	if gone {
		return ErrUnknownMessage
	}
	return r.record(Action{Kind: ActionReply, ChannelID: msg.ChannelID, MessageID: msg.ID, Text: text})
}

// Delete records a delete.
func (r *Recorder) Delete(ctx context.Context, msg *Message) error {
	if err := r.record(Action{Kind: ActionDelete, ChannelID: msg.ChannelID, MessageID: msg.ID}); err != nil {
		return err
	}
	r.mu.Lock()
	r.deleted[msg.ID] = true
	r.mu.Unlock()
	return nil
}

// Previous returns the message registered with SetPrevious.
func (r *Recorder) Previous(ctx context.Context, msg *Message) (*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.previous[msg.ID], nil
}

// Actions returns a copy of everything recorded so far.
func (r *Recorder) Actions() []Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Action, len(r.actions))
	copy(out, r.actions)
	return out
}

// Reset clears recorded actions.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = nil
	r.deleted = make(map[int64]bool)
}

func (r *Recorder) record(a Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.actions = append(r.actions, a)
	return nil
}
