package table

type index[K comparable, R Row[K]] struct {
	extract func(R) string
	buckets map[string]map[K]struct{}
}

func newIndex[K comparable, R Row[K]](extract func(R) string) *index[K, R] {
	return &index[K, R]{
		extract: extract,
		buckets: make(map[string]map[K]struct{}),
	}
}

func (i *index[K, R]) add(key K, row R) {
	term := i.extract(row)
	bucket, ok := i.buckets[term]
	if !ok {
		bucket = make(map[K]struct{})
		i.buckets[term] = bucket
	}
	bucket[key] = struct{}{}
}

func (i *index[K, R]) remove(key K, row R) {
	term := i.extract(row)
	bucket, ok := i.buckets[term]
	if !ok {
		return
	}
	delete(bucket, key)
	if len(bucket) == 0 {
		delete(i.buckets, term)
	}
}

func (i *index[K, R]) lookup(term string) map[K]struct{} {
	return i.buckets[term]
}
