package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is an in-process Store. Every operation runs under one mutex, which makes
// unique checks and increments atomic the same way a single Mongo document write is.
type MemoryStore struct {
	mu          sync.Mutex
	now         func() time.Time
	collections map[string]*memCollection
}

type memCollection struct {
	docs   []bson.M
	unique [][]string
	ttl    []IndexSpec
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the clock used for TTL eviction.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{now: time.Now, collections: map[string]*memCollection{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) collection(name string) *memCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memCollection{}
		s.collections[name] = c
	}
	s.evictExpired(c)
	return c
}

func (s *MemoryStore) FindOne(_ context.Context, collection string, filter Filter, out interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := toDoc(filter)
	if err != nil {
		return err
	}
	for _, doc := range s.collection(collection).docs {
		ok, err := matches(doc, f)
		if err != nil {
			return err
		}
		if ok {
			return fromDoc(doc, out)
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) Find(_ context.Context, collection string, filter Filter, opts FindOptions, out interface{}) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return errors.New("find: out must be a pointer to a slice")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := toDoc(filter)
	if err != nil {
		return err
	}
	var hits []bson.M
	for _, doc := range s.collection(collection).docs {
		ok, err := matches(doc, f)
		if err != nil {
			return err
		}
		if ok {
			hits = append(hits, doc)
		}
	}

	if len(opts.Sort) > 0 {
		sort.SliceStable(hits, func(i, j int) bool {
			for _, field := range opts.Sort {
				a, aok := lookup(hits[i], field.Field)
				b, bok := lookup(hits[j], field.Field)
				c := sortCompare(a, aok, b, bok)
				if c == 0 {
					continue
				}
				if field.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if opts.Skip > 0 {
		if opts.Skip >= int64(len(hits)) {
			hits = nil
		} else {
			hits = hits[opts.Skip:]
		}
	}
	if opts.Limit > 0 && int64(len(hits)) > opts.Limit {
		hits = hits[:opts.Limit]
	}

	sliceType := rv.Elem().Type()
	result := reflect.MakeSlice(sliceType, 0, len(hits))
	for _, doc := range hits {
		elem := reflect.New(sliceType.Elem())
		if err := fromDoc(doc, elem.Interface()); err != nil {
			return err
		}
		result = reflect.Append(result, elem.Elem())
	}
	rv.Elem().Set(result)
	return nil
}

func (s *MemoryStore) Count(_ context.Context, collection string, filter Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := toDoc(filter)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, doc := range s.collection(collection).docs {
		ok, err := matches(doc, f)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Insert(_ context.Context, collection string, doc interface{}) error {
	m, err := toDoc(doc)
	if err != nil {
		return err
	}
	id, ok := m["_id"]
	if !ok || id == nil || id == "" {
		return errors.New("insert: document has no _id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	for _, existing := range c.docs {
		if equalValues(existing["_id"], id) {
			return &DuplicateKeyError{Collection: collection, Field: "_id"}
		}
	}
	if field := c.conflict(m, -1); field != "" {
		return &DuplicateKeyError{Collection: collection, Field: field}
	}
	c.docs = append(c.docs, m)
	return nil
}

func (s *MemoryStore) UpdateOne(_ context.Context, collection string, filter Filter, set bson.M) error {
	f, err := toDoc(filter)
	if err != nil {
		return err
	}
	patch, err := toDoc(set)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	for i, doc := range c.docs {
		ok, err := matches(doc, f)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		updated, err := cloneDoc(doc)
		if err != nil {
			return err
		}
		for path, v := range patch {
			setPath(updated, path, v)
		}
		if field := c.conflict(updated, i); field != "" {
			return &DuplicateKeyError{Collection: collection, Field: field}
		}
		c.docs[i] = updated
		return nil
	}
	return ErrNotFound
}

func (s *MemoryStore) IncrementField(_ context.Context, collection, id, field string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range s.collection(collection).docs {
		if !equalValues(doc["_id"], id) {
			continue
		}
		var current int64
		if v, ok := lookup(doc, field); ok && v != nil {
			n, isNum := normalize(v).(float64)
			if !isNum {
				return fmt.Errorf("increment: field %s is not numeric", field)
			}
			current = int64(n)
		}
		setPath(doc, field, current+delta)
		return nil
	}
	return ErrNotFound
}

func (s *MemoryStore) DeleteOne(_ context.Context, collection string, filter Filter) error {
	f, err := toDoc(filter)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	for i, doc := range c.docs {
		ok, err := matches(doc, f)
		if err != nil {
			return err
		}
		if ok {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) DeleteMany(_ context.Context, collection string, filter Filter) (int64, error) {
	f, err := toDoc(filter)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	kept := c.docs[:0]
	var removed int64
	for _, doc := range c.docs {
		ok, err := matches(doc, f)
		if err != nil {
			return 0, err
		}
		if ok {
			removed++
			continue
		}
		kept = append(kept, doc)
	}
	c.docs = kept
	return removed, nil
}

func (s *MemoryStore) EnsureIndexes(_ context.Context, specs []IndexSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, spec := range specs {
		c := s.collection(spec.Collection)
		if spec.Unique {
			c.unique = append(c.unique, spec.Keys)
		}
		if spec.ExpireAfter > 0 {
			if len(spec.Keys) != 1 {
				return fmt.Errorf("ttl index on %s must have exactly one key", spec.Collection)
			}
			c.ttl = append(c.ttl, spec)
		}
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// conflict returns the unique key that doc would violate, ignoring the document at skip.
func (c *memCollection) conflict(doc bson.M, skip int) string {
	for _, keys := range c.unique {
		for i, other := range c.docs {
			if i == skip {
				continue
			}
			same := true
			for _, k := range keys {
				a, _ := lookup(doc, k)
				b, _ := lookup(other, k)
				if !equalValues(a, b) {
					same = false
					break
				}
			}
			if same {
				return strings.Join(keys, ",")
			}
		}
	}
	return ""
}

func (s *MemoryStore) evictExpired(c *memCollection) {
	if len(c.ttl) == 0 {
		return
	}
	now := s.now()
	kept := c.docs[:0]
	for _, doc := range c.docs {
		expired := false
		for _, spec := range c.ttl {
			v, ok := lookup(doc, spec.Keys[0])
			if !ok {
				continue
			}
			if dt, isTime := v.(primitive.DateTime); isTime && !dt.Time().Add(spec.ExpireAfter).After(now) {
				expired = true
				break
			}
		}
		if !expired {
			kept = append(kept, doc)
		}
	}
	c.docs = kept
}

// toDoc converts any marshalable value into decoded BSON form so stored documents,
// filters and patches share one representation.
func toDoc(v interface{}) (bson.M, error) {
	if v == nil {
		return bson.M{}, nil
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return m, nil
}

func fromDoc(doc bson.M, out interface{}) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

func cloneDoc(doc bson.M) (bson.M, error) {
	return toDoc(doc)
}
