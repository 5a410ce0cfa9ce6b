//go:build rp2040

package pms5x03

import (
	"context"

	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

// uartPort adapts a uartx UART to io.Reader for StreamReader.
type uartPort struct{ u *uartx.UART }

func (p uartPort) Read(b []byte) (int, error) {
	return p.u.RecvSomeContext(context.Background(), b)
}

// NewUARTStream configures the given hardware UART for the sensor's fixed
// 9600-8N1 serial format and returns a frame reader bound to it.
// hw is uartx.UART0 or uartx.UART1.
func NewUARTStream(hw *uartx.UART, tx, rx machine.Pin) (*StreamReader, error) {
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: 9600,
		TX:       tx,
		RX:       rx,
	}); err != nil {
		return nil, err
	}
	return NewStreamReader(uartPort{u: hw}), nil
}
