// Package transport implements the message-passing layer between
// neighbouring workers: a tagged Link abstraction and, on top of it, the
// pre-sweep/post-sweep halo-exchange protocol that preserves Gauss–Seidel
// ordering across partition boundaries.
//
// The target deployment for the original system is a coordinated MPI job;
// this module's Link is an interface so a real network backend could
// implement it later, but the only implementation built here is an
// in-process fabric of buffered channels connecting worker goroutines —
// the idiomatic Go stand-in for SPMD message passing within one process.
package transport

import "fmt"

// bufferDepth bounds how many tagged messages may be in flight on one
// directed edge before a Send blocks. It only needs to cover one phase's
// worth of per-tile messages (at most nbx or nby of them) with headroom
// for a sender that has moved on to the next sweep before a slow peer has
// drained the previous one.
const bufferDepth = 256

// Link is one directed communication endpoint between a worker and a
// single neighbour. Send and Recv carry exactly one tagged message each;
// tags disambiguate the concurrent per-tile messages within one exchange
// phase along the same link.
type Link interface {
	Send(tag int, data []float64) error
	Recv(tag int, dst []float64) error
}

type message struct {
	tag  int
	data []float64
}

// Fabric is an in-process message-passing fabric connecting worker
// goroutines identified by linear rank. Each ordered (from, to) pair gets
// its own buffered channel, so a worker's link to a given neighbour can
// send and receive independently without interfering with the reverse
// direction.
type Fabric struct {
	chans map[[2]int]chan message
}

// NewFabric creates an empty fabric. Links are created lazily by Link.
func NewFabric() *Fabric {
	return &Fabric{chans: make(map[[2]int]chan message)}
}

func (f *Fabric) chanFor(from, to int) chan message {
	key := [2]int{from, to}
	ch, ok := f.chans[key]
	if !ok {
		ch = make(chan message, bufferDepth)
		f.chans[key] = ch
	}
	return ch
}

// Link returns self's Link to peer. The fabric's channels must all be
// created before any worker goroutine starts sending, since Fabric itself
// is not safe for concurrent Link calls (by design: wiring happens once,
// single-threaded, before the run starts).
func (f *Fabric) Link(self, peer int) Link {
	f.chanFor(self, peer)
	f.chanFor(peer, self)
	return &fabricLink{fabric: f, self: self, peer: peer}
}

type fabricLink struct {
	fabric   *Fabric
	self, peer int
}

func (l *fabricLink) Send(tag int, data []float64) error {
	buf := make([]float64, len(data))
	copy(buf, data)
	l.fabric.chanFor(l.self, l.peer) <- message{tag: tag, data: buf}
	return nil
}

func (l *fabricLink) Recv(tag int, dst []float64) error {
	m := <-l.fabric.chanFor(l.peer, l.self)
	if len(m.data) != len(dst) {
		return fmt.Errorf("transport: peer %d sent %d doubles tagged %d, want %d (tag %d)", l.peer, len(m.data), m.tag, len(dst), tag)
	}
	if m.tag != tag {
		return fmt.Errorf("transport: peer %d sent tag %d, want %d", l.peer, m.tag, tag)
	}
	copy(dst, m.data)
	return nil
}
