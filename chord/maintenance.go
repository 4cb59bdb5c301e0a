package chord

import (
	"math/rand"
	"time"

	"github.com/golang/glog"
)

// Schedule arms the self-rearming stabilize timer (spec §9: cadence is a
// parameter the source never wires up; a production deployment must).
// Mirrors the teacher's time.AfterFunc-based vn.schedule/vn.stabilize
// idiom: each run reschedules itself before returning.
func (n *Node) Schedule() {
	delay := randStabilize(n.conf)
	time.AfterFunc(delay, n.runStabilize)
}

// StopMaintenance halts the self-rearming timer; subsequent ticks no-op.
func (n *Node) StopMaintenance() {
	n.mu.Lock()
	n.stopped = true
	n.mu.Unlock()
}

func (n *Node) runStabilize() {
	n.mu.Lock()
	stopped := n.stopped
	n.mu.Unlock()
	if stopped {
		return
	}
	defer n.Schedule()

	if err := n.stabilize(); err != nil {
		glog.Errorf("stabilize failed at %s: %v", n.selfAddr, err)
	}
}

// randStabilize picks a random interval in [StabilizeMin, StabilizeMax].
func randStabilize(conf *Config) time.Duration {
	min := conf.StabilizeMin
	max := conf.StabilizeMax
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Float64()*float64(max-min))
}
