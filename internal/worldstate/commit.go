package worldstate

// Commit flattens every pending write into a Batch and commits it to the
// backing store, then clears the dirty map (the change log is cleared
// too, since nothing before the new backing state is revertable anymore).
func (c *Cache) Commit() error {
	batch := Batch{Writes: make([]WriteOp, 0, len(c.dirty))}
	for ek, v := range c.dirty {
		batch.Writes = append(batch.Writes, WriteOp{Address: ek.addr, Key: []byte(ek.key), Value: v})
	}
	if err := c.backing.Commit(batch); err != nil {
		return err
	}
	c.dirty = make(map[entryKey][]byte)
	c.present = make(map[entryKey]bool)
	c.log = nil
	return nil
}
