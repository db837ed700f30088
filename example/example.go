// Smoke-test firmware for an LPC176x board, exercising the clock tree,
// UART0 console, a GPIO blink, and I2C0 in a simple sequence.
//
// +build arm

package main

import (
	"fmt"
	"time"

	"github.com/lpc176x/periph/soc/lpc176x"
	"github.com/lpc176x/periph/soc/lpc176x/i2c"
	"github.com/lpc176x/periph/soc/lpc176x/irq"
	"github.com/lpc176x/periph/soc/lpc176x/pin"
	"github.com/lpc176x/periph/soc/lpc176x/systick"
	"github.com/lpc176x/periph/soc/lpc176x/uart"
)

const banner = "Hello from lpc176x!"

var led = pin.PIN(1, 18)

func main() {
	if err := lpc176x.Init(); err != nil {
		panic(err)
	}
	systick.Start()

	lpc176x.UART0.Init(pin.PIN(0, 2), pin.Alternate1, 25000000, 115200,
		uart.Mode(uart.Char8Bit, uart.Stop1, uart.ParityNone, false), irq.UART0)

	pin.SetDirection(led, pin.Output)

	fmt.Println(banner)

	lpc176x.I2C0.Init(pin.PIN(0, 27), pin.Alternate1, 25000000, i2c.Standard)

	n := 0
	for {
		pin.Set(led)
		systick.Delay(500)
		pin.Clear(led)
		systick.Delay(500)

		n++
		fmt.Printf("tick %d at %v\n", n, time.Now())

		if n >= 10 {
			break
		}
	}

	fmt.Println("done")
}
