// Command c-lib builds a shared library exposing the transmitter to
// non-Go callers: start/stop a run and read back its counters by run ID.
package main

import "C"

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/zyedidia/generic/list"

	"github.com/gridstream/sv92/config"
	"github.com/gridstream/sv92/socket"
	"github.com/gridstream/sv92/transmitter"
)

type run struct {
	id     uuid.UUID
	tx     *transmitter.Transmitter
	cancel context.CancelFunc
}

var runs *list.List[*run]

func init() {
	runs = list.New[*run]()
}

func findRunByID(id uuid.UUID) *run {
	var ret *run
	runs.Front.Each(func(r *run) {
		if r.id == id {
			ret = r
		}
	})
	return ret
}

//export NewPhasorRun
func NewPhasorRun(ID []byte, iface *C.char, dstMAC *C.char, svID *C.char, appID uint16, sampleRateHz uint16) bool {
	goUUID, err := uuid.FromBytes(ID)
	if err != nil {
		return false
	}

	cfg := config.DefaultPhasorConfig()
	cfg.Network.Interface = C.GoString(iface)
	cfg.Network.DstMAC = C.GoString(dstMAC)
	cfg.Network.SvID = C.GoString(svID)
	cfg.Network.AppID = appID
	cfg.Network.SampleRateHz = sampleRateHz
	cfg.Goose.Enabled = false

	var tx transmitter.Transmitter
	if err := tx.ConfigurePhasor(cfg, &socket.LinuxSocket{}, nil); err != nil {
		fmt.Println("configure failed:", tx.LastError())
		return false
	}

	runs.PushBack(&run{id: goUUID, tx: &tx})
	return true
}

//export StartRun
func StartRun(ID []byte) bool {
	goUUID, _ := uuid.FromBytes(ID)
	r := findRunByID(goUUID)
	if r == nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go func() {
		if err := r.tx.Run(ctx); err != nil {
			fmt.Println("run failed:", r.tx.LastError())
		}
	}()
	return true
}

//export StopRun
func StopRun(ID []byte) bool {
	goUUID, _ := uuid.FromBytes(ID)
	r := findRunByID(goUUID)
	if r == nil {
		return false
	}
	r.tx.Stop()
	if r.cancel != nil {
		r.cancel()
	}
	return true
}

//export GetRunStats
func GetRunStats(ID []byte) (ok bool, packetsSent uint64, packetsFailed uint64, averageRateHz float64) {
	goUUID, _ := uuid.FromBytes(ID)
	r := findRunByID(goUUID)
	if r == nil {
		return false, 0, 0, 0
	}
	s := r.tx.Stats()
	return true, s.PacketsSent.Load(), s.PacketsFailed.Load(), s.AverageRate()
}

func main() {}
