package allocation

import "sync"

// scheduleLocks сериализует аллокации одного расписания.
// Разные расписания не сериализуются между собой, даже если
// конкурируют за один пул ресурсов.
type scheduleLocks struct {
	locks sync.Map // map[int64]*sync.Mutex
}

// acquire блокирует ключ расписания и возвращает функцию освобождения.
func (l *scheduleLocks) acquire(scheduleID int64) func() {
	v, _ := l.locks.LoadOrStore(scheduleID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
