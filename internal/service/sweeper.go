package service

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically retracts expired attachments. It issues its own
// storage mutations without going through the realtime gateway; expiry is
// not client-triggered, so there is nothing to broadcast.
type Sweeper struct {
	messages *MessageService
	interval time.Duration
}

func NewSweeper(messages *MessageService, interval time.Duration) *Sweeper {
	return &Sweeper{messages: messages, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping once per interval. Run it in
// its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.messages.SweepExpiredAttachments(ctx)
			if err != nil {
				log.Printf("sweeper: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("sweeper: cleared %d expired attachments", n)
			}
		}
	}
}
