package realtime

import "sync"

// relay 订阅端的无界转发队列：生产方 push 永不阻塞、永不丢弃，
// 单独的协程按序送入 out；消费方慢只会让队列变长
type relay struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []Event
	closed  bool

	out  chan Event
	done chan struct{}
}

func newRelay(buffer int) *relay {
	r := &relay{out: make(chan Event, buffer), done: make(chan struct{})}
	r.cond = sync.NewCond(&r.mu)
	go r.run()
	return r
}

// push 入队；已关闭时返回 false
func (r *relay) push(ev Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.pending = append(r.pending, ev)
	r.cond.Signal()
	return true
}

// close 幂等；未送出的事件随之丢弃，out 由 run 关闭
func (r *relay) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.done)
	r.cond.Broadcast()
}

func (r *relay) run() {
	defer close(r.out)
	for {
		r.mu.Lock()
		for len(r.pending) == 0 && !r.closed {
			r.cond.Wait()
		}
		if r.closed {
			r.mu.Unlock()
			return
		}
		ev := r.pending[0]
		r.pending[0] = Event{}
		r.pending = r.pending[1:]
		r.mu.Unlock()

		select {
		case r.out <- ev:
		case <-r.done:
			return
		}
	}
}
