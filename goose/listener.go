package goose

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zyedidia/generic/list"
)

// Socket is the subset of the raw-socket capability the listener needs.
type Socket interface {
	Receive() ([]byte, error)
}

// pollInterval bounds how long the listener can block before it notices
// cancellation.
const pollInterval = 10 * time.Millisecond

// seenEntry is one recently observed (stNum, sqNum) pair. The listener
// records these in a bounded ring; nothing in this package reads the ring
// back, and retransmitted GOOSE frames are matched like any other frame.
type seenEntry struct {
	stNum, sqNum uint32
}

const recentRingSize = 32

// StopCondition configures when the listener should signal cancellation.
type StopCondition struct {
	// GoCBRefContains: a GOOSE whose gocbRef contains this substring fires
	// the stop condition. Empty disables stop-on-match (listener still
	// decodes and logs, but never cancels).
	GoCBRefContains string
}

// Result records why and with what message a listener run ended.
type Result struct {
	Stopped bool
	Reason  string
}

// Listener polls a raw socket for inbound frames, decodes GOOSE PDUs, and
// cancels the supplied context when the configured stop condition fires.
type Listener struct {
	socket Socket
	stop   StopCondition

	mu     sync.Mutex
	result Result

	recent    *list.List[seenEntry]
	recentLen int
}

// New constructs a listener bound to socket with the given stop condition.
func New(socket Socket, stop StopCondition) *Listener {
	return &Listener{socket: socket, stop: stop, recent: list.New[seenEntry]()}
}

// Run polls until ctx is cancelled or the stop condition fires, in which case
// it calls cancel itself so a caller selecting on ctx.Done() wakes promptly.
// Run always returns once ctx is done.
func (l *Listener) Run(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.pollOnce(cancel)
		}
	}
}

func (l *Listener) pollOnce(cancel context.CancelFunc) {
	frame, err := l.socket.Receive()
	if err != nil || len(frame) == 0 {
		return
	}
	msg := Decode(frame)
	if !msg.Valid {
		return
	}

	l.rememberSeen(seenEntry{msg.StNum, msg.SqNum})
	log.Debug().Str("gocb_ref", msg.GoCBRef).Uint32("st_num", msg.StNum).
		Uint32("sq_num", msg.SqNum).Msg("goose message decoded")

	if l.stop.GoCBRefContains == "" {
		return
	}
	if strings.Contains(msg.GoCBRef, l.stop.GoCBRefContains) {
		l.mu.Lock()
		l.result = Result{Stopped: true, Reason: msg.GoCBRef}
		l.mu.Unlock()
		log.Info().Str("gocb_ref", msg.GoCBRef).Msg("goose stop condition matched")
		cancel()
	}
}

// rememberSeen appends e and, once the ring exceeds its bound, rebuilds the
// list dropping the oldest entries. Trimming goes through a fresh list plus
// Each instead of node-level removal.
func (l *Listener) rememberSeen(e seenEntry) {
	l.recent.PushBack(e)
	l.recentLen++
	if l.recentLen > recentRingSize {
		trimmed := list.New[seenEntry]()
		skip := l.recentLen - recentRingSize
		i := 0
		l.recent.Front.Each(func(v seenEntry) {
			if i >= skip {
				trimmed.PushBack(v)
			}
			i++
		})
		l.recent = trimmed
		l.recentLen = recentRingSize
	}
}

// LastResult returns why (if at all) the listener's stop condition fired.
func (l *Listener) LastResult() Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.result
}
