package cachestore

// Hybrid reads memory first, then disk (promoting disk hits into memory).
// Writes go to both tiers (spec.md §4.1).
type Hybrid struct {
	memory *Memory
	disk   *Disk
}

// NewHybrid composes a memory and a disk backend into one read-through,
// write-through tier.
func NewHybrid(memory *Memory, disk *Disk) *Hybrid {
	return &Hybrid{memory: memory, disk: disk}
}

func (h *Hybrid) Get(fp FP) (string, bool) {
	if v, ok := h.memory.Get(fp); ok {
		return v, true
	}
	v, ok := h.disk.Get(fp)
	if !ok {
		return "", false
	}
	_ = h.memory.Set(fp, v)
	return v, true
}

func (h *Hybrid) Set(fp FP, value string) error {
	memErr := h.memory.Set(fp, value)
	diskErr := h.disk.Set(fp, value)
	if diskErr != nil {
		return diskErr
	}
	return memErr
}

func (h *Hybrid) Delete(fp FP) error {
	memErr := h.memory.Delete(fp)
	diskErr := h.disk.Delete(fp)
	if diskErr != nil {
		return diskErr
	}
	return memErr
}

func (h *Hybrid) Clear() error {
	memErr := h.memory.Clear()
	diskErr := h.disk.Clear()
	if diskErr != nil {
		return diskErr
	}
	return memErr
}

func (h *Hybrid) Contains(fp FP) bool {
	return h.memory.Contains(fp) || h.disk.Contains(fp)
}

func (h *Hybrid) Keys() []FP {
	seen := make(map[FP]struct{})
	var keys []FP
	for _, fp := range h.memory.Keys() {
		if _, ok := seen[fp]; !ok {
			seen[fp] = struct{}{}
			keys = append(keys, fp)
		}
	}
	for _, fp := range h.disk.Keys() {
		if _, ok := seen[fp]; !ok {
			seen[fp] = struct{}{}
			keys = append(keys, fp)
		}
	}
	return keys
}
