package ethernet

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// EtherType identifies the payload carried by a frame.
type EtherType = layers.EthernetType

const (
	EtherTypeIPv4 = layers.EthernetTypeIPv4
	EtherTypeARP  = layers.EthernetTypeARP
)

// Broadcast is the all-ones Ethernet address.
var Broadcast = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// Frame is the link-layer envelope exchanged with the wire.
type Frame struct {
	Destination net.HardwareAddr
	Source      net.HardwareAddr
	Type        EtherType
	Payload     []byte
}

// Marshal encodes the frame into wire format, padding short frames to the
// Ethernet minimum.
func (f Frame) Marshal() ([]byte, error) {
	eth := layers.Ethernet{
		SrcMAC:       f.Source,
		DstMAC:       f.Destination,
		EthernetType: f.Type,
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, &eth, gopacket.Payload(f.Payload)); err != nil {
		return nil, fmt.Errorf("serialize ethernet frame: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse decodes a wire-format frame.
func Parse(data []byte) (Frame, error) {
	var eth layers.Ethernet
	if err := eth.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return Frame{}, fmt.Errorf("decode ethernet frame: %w", err)
	}

	return Frame{
		Destination: eth.DstMAC,
		Source:      eth.SrcMAC,
		Type:        eth.EthernetType,
		Payload:     eth.Payload,
	}, nil
}
