package models

// Files is the ordered file collection passed through a build. Iteration
// follows insertion order; replacing an existing key keeps its position.
type Files struct {
	keys    []string
	records map[string]*FileRecord
}

// NewFiles creates an empty collection.
func NewFiles() *Files {
	return &Files{
		records: make(map[string]*FileRecord),
	}
}

// Set adds or replaces the record stored under key.
func (f *Files) Set(key string, record *FileRecord) {
	if _, exists := f.records[key]; !exists {
		f.keys = append(f.keys, key)
	}
	f.records[key] = record
}

// Get returns the record stored under key.
func (f *Files) Get(key string) (*FileRecord, bool) {
	record, exists := f.records[key]
	return record, exists
}

// Delete removes key from the collection.
func (f *Files) Delete(key string) {
	if _, exists := f.records[key]; !exists {
		return
	}
	delete(f.records, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
}

// Rename moves a record to a new key, keeping its position.
func (f *Files) Rename(from, to string) {
	record, exists := f.records[from]
	if !exists || from == to {
		return
	}
	if _, taken := f.records[to]; taken {
		f.Delete(to)
	}
	delete(f.records, from)
	f.records[to] = record
	for i, k := range f.keys {
		if k == from {
			f.keys[i] = to
			break
		}
	}
}

// Keys returns a copy of the keys in iteration order.
func (f *Files) Keys() []string {
	keys := make([]string, len(f.keys))
	copy(keys, f.keys)
	return keys
}

// Len returns the number of records.
func (f *Files) Len() int {
	return len(f.keys)
}

// Range calls fn for every record in order until fn returns false.
func (f *Files) Range(fn func(key string, record *FileRecord) bool) {
	for _, key := range f.Keys() {
		record, exists := f.records[key]
		if !exists {
			continue
		}
		if !fn(key, record) {
			return
		}
	}
}
