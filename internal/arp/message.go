package arp

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Operation distinguishes resolution requests from replies.
type Operation uint16

const (
	OperationRequest Operation = layers.ARPRequest
	OperationReply   Operation = layers.ARPReply
)

func (o Operation) String() string {
	switch o {
	case OperationRequest:
		return "request"
	case OperationReply:
		return "reply"
	default:
		return fmt.Sprintf("operation(%d)", uint16(o))
	}
}

// Message is an address-resolution message for IPv4 over Ethernet.
type Message struct {
	Operation          Operation
	SenderHardwareAddr net.HardwareAddr
	SenderIP           netip.Addr
	TargetHardwareAddr net.HardwareAddr
	TargetIP           netip.Addr
}

// Marshal encodes the message into wire format. A nil TargetHardwareAddr is
// encoded as all zeroes, as in a request where the target is still unknown.
func (m Message) Marshal() ([]byte, error) {
	senderIP, err := ipv4Bytes(m.SenderIP)
	if err != nil {
		return nil, fmt.Errorf("sender address: %w", err)
	}
	targetIP, err := ipv4Bytes(m.TargetIP)
	if err != nil {
		return nil, fmt.Errorf("target address: %w", err)
	}

	targetHW := m.TargetHardwareAddr
	if targetHW == nil {
		targetHW = make(net.HardwareAddr, 6)
	}

	a := layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         uint16(m.Operation),
		SourceHwAddress:   m.SenderHardwareAddr,
		SourceProtAddress: senderIP,
		DstHwAddress:      targetHW,
		DstProtAddress:    targetIP,
	}

	buf := gopacket.NewSerializeBuffer()
	if err := a.SerializeTo(buf, gopacket.SerializeOptions{}); err != nil {
		return nil, fmt.Errorf("serialize arp message: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse decodes a wire-format message. Only IPv4-over-Ethernet messages are
// accepted; anything else is a decode error.
func Parse(data []byte) (Message, error) {
	var a layers.ARP
	if err := a.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return Message{}, fmt.Errorf("decode arp message: %w", err)
	}

	if a.AddrType != layers.LinkTypeEthernet || a.Protocol != layers.EthernetTypeIPv4 {
		return Message{}, fmt.Errorf("unsupported arp address types: hw=%d proto=%#x", a.AddrType, uint16(a.Protocol))
	}
	if a.HwAddressSize != 6 || a.ProtAddressSize != 4 {
		return Message{}, fmt.Errorf("unsupported arp address sizes: hw=%d proto=%d", a.HwAddressSize, a.ProtAddressSize)
	}

	return Message{
		Operation:          Operation(a.Operation),
		SenderHardwareAddr: net.HardwareAddr(a.SourceHwAddress),
		SenderIP:           netip.AddrFrom4([4]byte(a.SourceProtAddress)),
		TargetHardwareAddr: net.HardwareAddr(a.DstHwAddress),
		TargetIP:           netip.AddrFrom4([4]byte(a.DstProtAddress)),
	}, nil
}

func ipv4Bytes(addr netip.Addr) ([]byte, error) {
	addr = addr.Unmap()
	if !addr.Is4() {
		return nil, fmt.Errorf("%s is not an IPv4 address", addr)
	}
	b := addr.As4()
	return b[:], nil
}
