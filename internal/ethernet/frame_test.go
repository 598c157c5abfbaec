package ethernet

import (
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	src, _ := net.ParseMAC("aa:aa:aa:aa:aa:aa")
	dst, _ := net.ParseMAC("bb:bb:bb:bb:bb:bb")
	payload := []byte("link-layer payload")

	data, err := Frame{
		Destination: dst,
		Source:      src,
		Type:        EtherTypeIPv4,
		Payload:     payload,
	}.Marshal()
	require.NoError(t, err)

	// Short frames are padded to the Ethernet minimum.
	require.Equal(t, 60, len(data))

	frame, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, dst, frame.Destination)
	require.Equal(t, src, frame.Source)
	require.Equal(t, EtherTypeIPv4, frame.Type)
	require.True(t, bytes.HasPrefix(frame.Payload, payload))
}

func TestParseTruncatedFrame(t *testing.T) {
	_, err := Parse([]byte{0xaa, 0xbb, 0xcc})
	require.Error(t, err)
}
