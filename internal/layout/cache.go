package layout

import "ffigen/internal/ctypes"

type entry struct {
	Layout TypeLayout
	Err    *Error
}

type cache struct {
	byType map[ctypes.TypeID]*entry
}

func newCache() *cache {
	return &cache{byType: make(map[ctypes.TypeID]*entry, 256)}
}

func (c *cache) get(id ctypes.TypeID) (*entry, bool) {
	if c == nil {
		return nil, false
	}
	e, ok := c.byType[id]
	return e, ok
}

func (c *cache) put(id ctypes.TypeID, e *entry) {
	if c == nil || e == nil {
		return
	}
	c.byType[id] = e
}
