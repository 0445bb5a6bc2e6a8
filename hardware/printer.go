package hardware

import (
	"github.com/Shehab101tf/tareeqa0-sub002/serialio"
	"github.com/Shehab101tf/tareeqa0-sub002/spooler"
)

// printerSession pairs an open serial channel with its print queue. Cash
// drawers get the same shape; a drawer is driven through the identical
// channel with kick-only jobs.
type printerSession struct {
	device  Device
	channel *serialio.Channel
	queue   *spooler.Queue
}

func newPrinterSession(dev Device, ch *serialio.Channel, queue *spooler.Queue) *printerSession {
	return &printerSession{device: dev, channel: ch, queue: queue}
}

// close stops the queue first so no new writes start, then closes the port.
// An in-flight write finishes before Close takes the channel lock.
func (p *printerSession) close() {
	p.queue.Stop()
	if err := p.channel.Close(); err != nil {
		log.Warn("Printer port close failed", "device_id", p.device.ID, "error", err)
	}
}
