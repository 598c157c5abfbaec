package iface

// Neighbors returns a copy of the resolution cache.
func (i *Interface) Neighbors() []Neighbor {
	neighbors := make([]Neighbor, 0, len(i.cache))
	for ip, entry := range i.cache {
		neighbors = append(neighbors, Neighbor{
			IP:           ip,
			HardwareAddr: entry.hw,
			TTL:          entry.ttl,
		})
	}
	return neighbors
}

// PendingResolutions returns a copy of the in-flight request tracker.
func (i *Interface) PendingResolutions() []PendingResolution {
	pending := make([]PendingResolution, 0, len(i.pending))
	for ip, remaining := range i.pending {
		pending = append(pending, PendingResolution{IP: ip, Remaining: remaining})
	}
	return pending
}

// QueuedFrames reports how many frames are waiting to be polled.
func (i *Interface) QueuedFrames() int { return len(i.out) }

// BlockedDatagrams reports how many datagrams are parked awaiting resolution.
func (i *Interface) BlockedDatagrams() int { return len(i.blocked) }
