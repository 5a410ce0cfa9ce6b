// Package telemetry logs station activity from the bus. It is the console
// observer for bench debugging and the host simulator; it never influences
// the cycle.
package telemetry

import (
	"context"

	"aqstation-go/bus"
	"aqstation-go/types"
)

var (
	topicReading = bus.Topic{"station", "reading"}
	topicState   = bus.Topic{"station", "state"}
)

type Service struct{}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	readingSub := conn.Subscribe(topicReading)
	defer conn.Unsubscribe(readingSub)
	stateSub := conn.Subscribe(topicState)
	defer conn.Unsubscribe(stateSub)

	for {
		select {
		case <-ctx.Done():
			println("Info: telemetry service stopping")
			return
		case msg, ok := <-readingSub.Channel():
			if !ok {
				return
			}
			if r, ok := msg.Payload.(types.ReadingValue); ok {
				stale := ""
				if r.Stale {
					stale = " (stale)"
				}
				println("Info: reading pm2.5:", r.PM25, "ug/m3", r.Category, stale,
					"temp:", r.DeciTempC, "deci-C rh:", r.DeciRH, "deci-% wake:", r.Wakes)
			}
		case msg, ok := <-stateSub.Channel():
			if !ok {
				return
			}
			if st, ok := msg.Payload.(types.CycleStatus); ok {
				if st.Error != "" {
					println("Warn: phase", st.Phase, "cause", st.Cause, "err:", st.Error)
				} else {
					println("Info: phase", st.Phase, "cause", st.Cause)
				}
			}
		}
	}
}

// Start the telemetry service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
