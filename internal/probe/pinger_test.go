package probe

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/netforge/ip2eth/internal/iface"
)

type fakeSource struct {
	neighbors []iface.Neighbor
}

func (f *fakeSource) Neighbors() []iface.Neighbor { return f.neighbors }

func TestRunPingsEveryCachedNeighbor(t *testing.T) {
	mac, _ := net.ParseMAC("bb:bb:bb:bb:bb:bb")
	source := &fakeSource{neighbors: []iface.Neighbor{
		{IP: netip.MustParseAddr("2.2.2.2"), HardwareAddr: mac},
		{IP: netip.MustParseAddr("3.3.3.3"), HardwareAddr: mac},
	}}

	pinged := make(chan netip.Addr, 16)
	p := New(source, 10*time.Millisecond, zap.NewNop().Sugar())
	p.pingOne = func(ip netip.Addr) {
		select {
		case pinged <- ip:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(runDone)
	}()

	awaitPing := func() netip.Addr {
		select {
		case ip := <-pinged:
			return ip
		case <-time.After(5 * time.Second):
			t.Fatal("no ping issued")
			return netip.Addr{}
		}
	}

	// One probe per neighbor per interval, every interval.
	seen := map[netip.Addr]int{}
	for n := 0; n < 4; n++ {
		seen[awaitPing()]++
	}
	require.GreaterOrEqual(t, seen[netip.MustParseAddr("2.2.2.2")], 2)
	require.GreaterOrEqual(t, seen[netip.MustParseAddr("3.3.3.3")], 2)

	cancel()
	select {
	case <-runDone:
	case <-time.After(5 * time.Second):
		t.Fatal("pinger did not stop")
	}
}

func TestRunWithEmptyCacheIssuesNothing(t *testing.T) {
	pinged := make(chan netip.Addr, 1)
	p := New(&fakeSource{}, 5*time.Millisecond, zap.NewNop().Sugar())
	p.pingOne = func(ip netip.Addr) { pinged <- ip }

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	require.Empty(t, pinged)
}
