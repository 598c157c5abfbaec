package ipv4

import (
	"net/netip"
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"
)

func TestDatagramRoundTrip(t *testing.T) {
	src := netip.MustParseAddr("1.1.1.1")
	dst := netip.MustParseAddr("2.2.2.2")

	data, err := New(src, dst, layers.IPProtocolUDP, []byte("payload")).Marshal()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, src, parsed.Src())
	require.Equal(t, dst, parsed.Dst())
	require.Equal(t, layers.IPProtocolUDP, parsed.Header.Protocol)
	require.Equal(t, []byte("payload"), parsed.Payload)
}

func TestParseIgnoresLinkLayerPadding(t *testing.T) {
	src := netip.MustParseAddr("1.1.1.1")
	dst := netip.MustParseAddr("2.2.2.2")

	data, err := New(src, dst, layers.IPProtocolUDP, []byte("payload")).Marshal()
	require.NoError(t, err)
	padded := append(data, make([]byte, 18)...)

	parsed, err := Parse(padded)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), parsed.Payload)
}

func TestParseGarbage(t *testing.T) {
	_, err := Parse([]byte{0x45, 0x00})
	require.Error(t, err)
}
