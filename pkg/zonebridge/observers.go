package zonebridge

import "sync"

// NewChannelObserver exposes stored updates via a channel. It returns the
// UpdateFunc to register with WithOnUpdate, the read-only channel, and a
// close function the caller should invoke during shutdown.
//
// The observer runs on the transport's delivery goroutine, so a full
// channel drops the update rather than blocking ingestion; size the buffer
// for the consumer's pace.
func NewChannelObserver(buffer int) (UpdateFunc, <-chan Update, func()) {
	if buffer < 0 {
		buffer = 0
	}
	o := &channelObserver{
		ch: make(chan Update, buffer),
	}
	return o.observe, o.ch, o.close
}

type channelObserver struct {
	mu     sync.Mutex
	ch     chan Update
	closed bool
}

func (o *channelObserver) observe(u Update) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	select {
	case o.ch <- u:
	default:
		// Consumer is behind; the next update supersedes this one anyway.
	}
}

func (o *channelObserver) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.ch)
	}
}
