package bridge

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/gopacket/pcap"
	"go.uber.org/zap"
)

const pcapSnaplen = 65535

type pcapConn struct {
	handle *pcap.Handle
}

// OpenPcap opens a live capture on the named interface. The open is retried
// with exponential backoff, since the interface may not be up yet when the
// daemon starts.
func OpenPcap(ctx context.Context, ifaceName string, log *zap.SugaredLogger) (FrameConn, error) {
	handle, err := backoff.Retry(ctx, func() (*pcap.Handle, error) {
		h, err := pcap.OpenLive(ifaceName, pcapSnaplen, true, pcap.BlockForever)
		if err != nil {
			log.Warnw("failed to open capture, retrying", "interface", ifaceName, "err", err)
			return nil, err
		}
		return h, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(10))
	if err != nil {
		return nil, fmt.Errorf("open capture on %s: %w", ifaceName, err)
	}

	log.Infow("capture open", "interface", ifaceName)
	return &pcapConn{handle: handle}, nil
}

func (c *pcapConn) ReadFrame() ([]byte, error) {
	data, _, err := c.handle.ReadPacketData()
	return data, err
}

func (c *pcapConn) WriteFrame(data []byte) error {
	return c.handle.WritePacketData(data)
}

func (c *pcapConn) Close() {
	c.handle.Close()
}
