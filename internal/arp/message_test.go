package arp

import (
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustMAC(t *testing.T, s string) net.HardwareAddr {
	t.Helper()
	mac, err := net.ParseMAC(s)
	require.NoError(t, err)
	return mac
}

func TestRequestRoundTrip(t *testing.T) {
	msg := Message{
		Operation:          OperationRequest,
		SenderHardwareAddr: mustMAC(t, "aa:aa:aa:aa:aa:aa"),
		SenderIP:           netip.MustParseAddr("1.1.1.1"),
		TargetIP:           netip.MustParseAddr("2.2.2.2"),
	}

	data, err := msg.Marshal()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, OperationRequest, parsed.Operation)
	require.Equal(t, msg.SenderHardwareAddr, parsed.SenderHardwareAddr)
	require.Equal(t, msg.SenderIP, parsed.SenderIP)
	require.Equal(t, msg.TargetIP, parsed.TargetIP)

	// The unknown target hardware address goes out as all zeroes.
	require.Equal(t, net.HardwareAddr(make([]byte, 6)), parsed.TargetHardwareAddr)
}

func TestReplyRoundTrip(t *testing.T) {
	msg := Message{
		Operation:          OperationReply,
		SenderHardwareAddr: mustMAC(t, "bb:bb:bb:bb:bb:bb"),
		SenderIP:           netip.MustParseAddr("2.2.2.2"),
		TargetHardwareAddr: mustMAC(t, "aa:aa:aa:aa:aa:aa"),
		TargetIP:           netip.MustParseAddr("1.1.1.1"),
	}

	data, err := msg.Marshal()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, msg, parsed)
}

func TestMarshalRejectsNonIPv4Addresses(t *testing.T) {
	msg := Message{
		Operation:          OperationRequest,
		SenderHardwareAddr: mustMAC(t, "aa:aa:aa:aa:aa:aa"),
		SenderIP:           netip.MustParseAddr("fe80::1"),
		TargetIP:           netip.MustParseAddr("2.2.2.2"),
	}

	_, err := msg.Marshal()
	require.Error(t, err)
}

func TestParseGarbage(t *testing.T) {
	_, err := Parse([]byte{0x00, 0x01, 0x02})
	require.Error(t, err)
}

func TestParseTruncatedMessage(t *testing.T) {
	msg := Message{
		Operation:          OperationReply,
		SenderHardwareAddr: mustMAC(t, "bb:bb:bb:bb:bb:bb"),
		SenderIP:           netip.MustParseAddr("2.2.2.2"),
		TargetHardwareAddr: mustMAC(t, "aa:aa:aa:aa:aa:aa"),
		TargetIP:           netip.MustParseAddr("1.1.1.1"),
	}

	data, err := msg.Marshal()
	require.NoError(t, err)

	_, err = Parse(data[:len(data)-4])
	require.Error(t, err)
}
