package seed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var errObjectNotFound = errors.New("object not found")

// fakeStore is an in-memory ObjectStore.
type fakeStore struct {
	objects map[string][]byte
	listErr error
	signed  []string
}

func newFakeStore(keys ...string) *fakeStore {
	f := &fakeStore{objects: make(map[string][]byte)}
	for _, k := range keys {
		f.objects[k] = []byte("data:" + k)
	}
	return f
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]Object, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []Object
	for k, v := range f.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, Object{Key: k, Size: int64(len(v))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := f.objects[key]
	if !ok {
		return nil, errObjectNotFound
	}
	return v, nil
}

func (f *fakeStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	f.signed = append(f.signed, key)
	return fmt.Sprintf("https://example.test/%s?X-Amz-Expires=%d", key, int(ttl.Seconds())), nil
}
