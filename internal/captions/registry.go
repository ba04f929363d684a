package captions

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// TrackHandle is a revocable reference to one generated caption track, the
// in-memory analog of a browser blob URL. Handles are only ever minted by a
// Registry, which guarantees the previous handle for the same file has been
// revoked first.
type TrackHandle struct {
	id      uuid.UUID
	fileID  string
	content string

	mu      sync.Mutex
	revoked bool
}

// URL returns the stable address under which the track can be served.
func (h *TrackHandle) URL() string {
	return fmt.Sprintf("/tracks/%s.vtt", h.id)
}

// Content returns the VTT payload, or false if the handle has been revoked.
func (h *TrackHandle) Content() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.revoked {
		return "", false
	}
	return h.content, true
}

// Revoked reports whether the handle has been released.
func (h *TrackHandle) Revoked() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.revoked
}

func (h *TrackHandle) revoke() {
	h.mu.Lock()
	h.revoked = true
	h.content = ""
	h.mu.Unlock()
}

// Registry owns the live caption track handles, at most one per file.
// Installing a new track always revokes the previous handle before the new
// one becomes visible, so a dangling handle cannot outlive a regeneration.
// The most recently revoked handle per file stays resolvable so a client
// holding a stale URL gets a clean "gone" rather than "never existed".
type Registry struct {
	mu      sync.Mutex
	live    map[string]*TrackHandle
	retired map[string]*TrackHandle
}

func NewRegistry() *Registry {
	return &Registry{
		live:    make(map[string]*TrackHandle),
		retired: make(map[string]*TrackHandle),
	}
}

// Install replaces the file's caption track with freshly synthesized content
// and returns the new handle.
func (r *Registry) Install(fileID, content string) *TrackHandle {
	h := &TrackHandle{id: uuid.New(), fileID: fileID, content: content}
	r.mu.Lock()
	prev := r.live[fileID]
	r.live[fileID] = h
	if prev != nil {
		r.retired[fileID] = prev
	}
	r.mu.Unlock()
	if prev != nil {
		prev.revoke()
	}
	return h
}

// Lookup finds a handle by its URL path, live or recently retired. Callers
// must check Content to distinguish a servable track from a revoked one.
func (r *Registry) Lookup(url string) (*TrackHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.live {
		if h.URL() == url {
			return h, true
		}
	}
	for _, h := range r.retired {
		if h.URL() == url {
			return h, true
		}
	}
	return nil, false
}

// Live returns the current handle for a file, if any.
func (r *Registry) Live(fileID string) (*TrackHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.live[fileID]
	return h, ok
}

// Revoke releases the file's track handle, if one is live.
func (r *Registry) Revoke(fileID string) {
	r.mu.Lock()
	h := r.live[fileID]
	delete(r.live, fileID)
	if h != nil {
		r.retired[fileID] = h
	}
	r.mu.Unlock()
	if h != nil {
		h.revoke()
	}
}

// Close revokes every live handle and forgets the retired ones. Called on
// engine teardown so track release does not depend on garbage collection.
func (r *Registry) Close() {
	r.mu.Lock()
	handles := make([]*TrackHandle, 0, len(r.live))
	for _, h := range r.live {
		handles = append(handles, h)
	}
	r.live = make(map[string]*TrackHandle)
	r.retired = make(map[string]*TrackHandle)
	r.mu.Unlock()
	for _, h := range handles {
		h.revoke()
	}
}
