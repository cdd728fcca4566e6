package intake

import (
	"sync"

	"hr-agent-go/internal/constants"
)

// Dedup 容量有界、按插入序淘汰的消息ID去重缓存。
// 进程内状态，不跨实例共享；重启后允许一轮重复处理，
// 下游的客户/面试创建本身按业务键幂等，可以承受。
type Dedup struct {
	mu       sync.Mutex
	capacity int
	seen     map[string]struct{}
	order    []string
}

// NewDedup 创建去重缓存，capacity 不合法时使用默认容量
func NewDedup(capacity int) *Dedup {
	if capacity <= 0 {
		capacity = constants.DedupCapacity
	}
	return &Dedup{
		capacity: capacity,
		seen:     make(map[string]struct{}, capacity),
	}
}

// ShouldProcess 判断消息是否需要处理。
// 首次见到的ID在返回前即登记，关闭同一ID近乎同时两次投递都被处理的竞态窗口；
// 已见到的ID返回 false，无任何副作用。
func (d *Dedup) ShouldProcess(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return false
	}

	if len(d.order) >= d.capacity {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}

	d.seen[id] = struct{}{}
	d.order = append(d.order, id)
	return true
}

// Forget 撤销一个ID的登记，使其可以再次被处理。
// 处理失败时必须调用，否则重投递会被当作重复直接吞掉。
func (d *Dedup) Forget(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; !ok {
		return
	}
	delete(d.seen, id)
	for i, v := range d.order {
		if v == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Len 当前缓存条目数
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}
