// Package uplink forwards station bus traffic over a byte link as JSON
// lines, one message per line: {"topic":"station/reading","payload":...}.
// On the target the link is a UART to a host; the monitor tooling consumes
// the same format from a serial device. Downstream traffic is out of
// scope: the link is one-way by design (the station sleeps too hard to
// serve requests).
package uplink

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"aqstation-go/bus"
)

var topicStation = bus.Topic{"station", bus.TokAll}

// Line is the wire record.
type Line struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

type Service struct {
	w io.Writer
}

// New creates an uplink writing to w. w must tolerate being written from
// the service goroutine only.
func New(w io.Writer) *Service {
	return &Service{w: w}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	sub := conn.Subscribe(topicStation)
	defer conn.Unsubscribe(sub)

	enc := json.NewEncoder(s.w)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			line := Line{
				Topic:   strings.Join(msg.Topic, "/"),
				Payload: msg.Payload,
			}
			if err := enc.Encode(&line); err != nil {
				// A wedged link must never stall the station; drop and go on.
				println("Warn: uplink write failed:", err.Error())
			}
		}
	}
}

// Start launches the forwarder.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
