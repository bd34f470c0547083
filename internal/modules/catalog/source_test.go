package catalog

import (
	"context"
	"errors"
)

type fakeSource struct {
	name         string
	onSnapshot   func([]Record)
	onError      func(error)
	subscribeErr error
	fetch        []Record
	fetchErr     error
	onFetch      func()
	unsubscribed int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Subscribe(_ context.Context, onSnapshot func([]Record), onError func(error)) (Unsubscribe, error) {
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.onSnapshot = onSnapshot
	f.onError = onError
	return func() { f.unsubscribed++ }, nil
}

func (f *fakeSource) Fetch(context.Context) ([]Record, error) {
	if f.onFetch != nil {
		f.onFetch()
	}
	return f.fetch, f.fetchErr
}

func (f *fakeSource) push(records ...Record) { f.onSnapshot(records) }

var errTransport = errors.New("connection reset")

func rec(id string, fields map[string]interface{}) Record {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	return Record{ID: id, Fields: fields}
}
