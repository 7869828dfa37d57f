package extraction

import "github.com/feichai0017/content-analyzer/internal/models"

// Observer receives progress synchronously on the extracting goroutine
type Observer func(models.ProgressState)

// ChannelObserver forwards every event to ch. Sends block, so the receiver
// must keep draining until Extract returns.
func ChannelObserver(ch chan<- models.ProgressState) Observer {
	return func(state models.ProgressState) {
		ch <- state
	}
}

// MultiObserver fans each event out to all non-nil observers in order
func MultiObserver(observers ...Observer) Observer {
	active := make([]Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			active = append(active, o)
		}
	}
	return func(state models.ProgressState) {
		for _, o := range active {
			o(state)
		}
	}
}
