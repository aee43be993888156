// Package sequencer 提供票号制的事务排队：并发调用方按到达顺序
// 获得串口独占权，任一时刻最多一个在途事务。
package sequencer

import "sync"

// Ticket 单调递增的排队票号
type Ticket uint64

// Sequencer 票号分发与FIFO排队。
// 票号到达队首才允许发起事务；Release 唤醒下一位等待者，
// 不做忙等（队首变更通过 per-ticket channel 通知）。
type Sequencer struct {
	mu     sync.Mutex
	next   Ticket
	queue  []Ticket
	wakeup map[Ticket]chan struct{}
}

// New 创建 Sequencer
func New() *Sequencer {
	return &Sequencer{
		wakeup: make(map[Ticket]chan struct{}),
	}
}

// Acquire 领取票号并加入队尾，并发安全
func (s *Sequencer) Acquire() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	t := s.next
	s.queue = append(s.queue, t)
	ch := make(chan struct{})
	s.wakeup[t] = ch
	if s.queue[0] == t {
		close(ch) // 队列原本为空，立即放行
	}
	return t
}

// AwaitTurn 阻塞直到票号到达队首
func (s *Sequencer) AwaitTurn(t Ticket) {
	s.mu.Lock()
	ch, ok := s.wakeup[t]
	s.mu.Unlock()
	if !ok {
		return // 已释放或从未领取
	}
	<-ch
}

// Release 移除队首票号并放行下一位。
// 每次 Acquire 必须恰好对应一次 Release（包括所有错误路径），
// 漏释放会令整个驱动永久卡死。
func (s *Sequencer) Release(t Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 || s.queue[0] != t {
		return // 非队首释放视为编程错误，忽略以保持队列一致
	}
	delete(s.wakeup, t)
	s.queue = s.queue[1:]
	if len(s.queue) > 0 {
		if ch, ok := s.wakeup[s.queue[0]]; ok {
			close(ch)
		}
	}
}

// Do 作用域化的事务执行：领票→等待队首→执行→保证释放。
// 所有触线事务都必须经由 Do，禁止手工配对 Acquire/Release。
func (s *Sequencer) Do(fn func() error) error {
	t := s.Acquire()
	defer s.Release(t)
	s.AwaitTurn(t)
	return fn()
}

// Pending 返回当前排队中的票号数（含在途事务），用于指标与测试
func (s *Sequencer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
