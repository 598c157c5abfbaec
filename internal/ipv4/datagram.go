package ipv4

import (
	"fmt"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Datagram is an IPv4 datagram: a parsed header plus its payload bytes.
type Datagram struct {
	Header  layers.IPv4
	Payload []byte
}

// New builds a datagram with sane header defaults, mostly useful for tests
// and locally originated traffic.
func New(src, dst netip.Addr, proto layers.IPProtocol, payload []byte) *Datagram {
	return &Datagram{
		Header: layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Protocol: proto,
			SrcIP:    src.Unmap().AsSlice(),
			DstIP:    dst.Unmap().AsSlice(),
		},
		Payload: payload,
	}
}

// Src returns the source address, or the zero Addr if the header is mangled.
func (d *Datagram) Src() netip.Addr {
	addr, _ := netip.AddrFromSlice(d.Header.SrcIP)
	return addr.Unmap()
}

// Dst returns the destination address, or the zero Addr if the header is mangled.
func (d *Datagram) Dst() netip.Addr {
	addr, _ := netip.AddrFromSlice(d.Header.DstIP)
	return addr.Unmap()
}

// Marshal encodes the datagram into wire format, fixing up the length and
// checksum fields.
func (d *Datagram) Marshal() ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, &d.Header, gopacket.Payload(d.Payload)); err != nil {
		return nil, fmt.Errorf("serialize ipv4 datagram: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse decodes a wire-format datagram. Trailing link-layer padding beyond
// the header's total length is discarded.
func Parse(data []byte) (*Datagram, error) {
	var ip layers.IPv4
	if err := ip.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return nil, fmt.Errorf("decode ipv4 datagram: %w", err)
	}

	d := &Datagram{Header: ip, Payload: ip.Payload}
	return d, nil
}
