package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/netforge/ip2eth/internal/iface"
)

// State is the view of the bridge the API reads from. Both *bridge.Bridge
// and a bare *iface.Interface satisfy it.
type State interface {
	Neighbors() []iface.Neighbor
	PendingResolutions() []iface.PendingResolution
	QueuedFrames() int
	BlockedDatagrams() int
}

type API struct {
	State State
}

func (a *API) ListNeighborsHandler(w http.ResponseWriter, r *http.Request) {
	type NeighborView struct {
		IP           string `json:"ip"`
		HardwareAddr string `json:"hwAddr"`
		TTLms        int64  `json:"ttl_ms"`
	}

	var output []NeighborView
	for _, n := range a.State.Neighbors() {
		output = append(output, NeighborView{
			IP:           n.IP.String(),
			HardwareAddr: n.HardwareAddr.String(),
			TTLms:        n.TTL.Milliseconds(),
		})
	}

	sort.Slice(output, func(i, j int) bool {
		return output[i].IP < output[j].IP
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(output)
}

func (a *API) ListPendingHandler(w http.ResponseWriter, r *http.Request) {
	type PendingView struct {
		IP          string `json:"ip"`
		RemainingMs int64  `json:"remaining_ms"`
	}

	var output []PendingView
	for _, p := range a.State.PendingResolutions() {
		output = append(output, PendingView{
			IP:          p.IP.String(),
			RemainingMs: p.Remaining.Milliseconds(),
		})
	}

	sort.Slice(output, func(i, j int) bool {
		return output[i].IP < output[j].IP
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(output)
}

func (a *API) StatsHandler(w http.ResponseWriter, r *http.Request) {
	type StatsView struct {
		QueuedFrames     int `json:"queued_frames"`
		BlockedDatagrams int `json:"blocked_datagrams"`
	}

	stats := StatsView{
		QueuedFrames:     a.State.QueuedFrames(),
		BlockedDatagrams: a.State.BlockedDatagrams(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
