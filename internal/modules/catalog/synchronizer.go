package catalog

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Synchronizer merges the goods and services sources into one catalog.
//
// Nothing reaches onChanged until both sources have delivered a snapshot (an
// empty one counts). From then on every snapshot from either source produces
// exactly one notification carrying goods followed by services, each in the
// order its source delivered them. Listener and refresh failures go to onError
// and never clear the last known catalog.
type Synchronizer struct {
	goods     Source
	services  Source
	onChanged func([]Item)
	onError   func(source string, err error)
	log       *zap.Logger

	mu            sync.Mutex
	goodsItems    []Item
	serviceItems  []Item
	goodsReady    bool
	servicesReady bool
	goodsSeq      uint64
	servicesSeq   uint64
}

// NewSynchronizer creates a synchronizer; onChanged is invoked serially.
// onError may be nil.
func NewSynchronizer(goods, services Source, onChanged func([]Item), onError func(string, error), log *zap.Logger) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Synchronizer{goods: goods, services: services, onChanged: onChanged, onError: onError, log: log}
}

// Start subscribes to both sources. The returned Unsubscribe releases both.
func (s *Synchronizer) Start(ctx context.Context) (Unsubscribe, error) {
	stopGoods, err := s.goods.Subscribe(ctx, s.applyGoods, s.sourceError(s.goods))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", s.goods.Name(), err)
	}
	stopServices, err := s.services.Subscribe(ctx, s.applyServices, s.sourceError(s.services))
	if err != nil {
		stopGoods()
		return nil, fmt.Errorf("subscribe %s: %w", s.services.Name(), err)
	}
	s.log.Info("catalog listeners started",
		zap.String("goods", s.goods.Name()), zap.String("services", s.services.Name()))

	var once sync.Once
	return func() {
		once.Do(func() {
			stopGoods()
			stopServices()
			s.log.Info("catalog listeners stopped")
		})
	}, nil
}

// Refresh re-reads both sources once. A failed read keeps that source's last
// known snapshot, and so does a live snapshot that lands while the read is in
// progress. The notification still obeys first-snapshot gating.
func (s *Synchronizer) Refresh(ctx context.Context) {
	s.mu.Lock()
	goodsSeq, servicesSeq := s.goodsSeq, s.servicesSeq
	s.mu.Unlock()

	goods, goodsErr := s.goods.Fetch(ctx)
	if goodsErr != nil {
		s.report(s.goods, "catalog refresh failed", goodsErr)
	}
	services, servicesErr := s.services.Fetch(ctx)
	if servicesErr != nil {
		s.report(s.services, "catalog refresh failed", servicesErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	if goodsErr == nil && s.goodsSeq == goodsSeq {
		s.goodsItems = mapAll(goods, MapGood)
		s.goodsReady = true
		s.goodsSeq++
		changed = true
	}
	if servicesErr == nil && s.servicesSeq == servicesSeq {
		s.serviceItems = mapAll(services, MapService)
		s.servicesReady = true
		s.servicesSeq++
		changed = true
	}
	if changed {
		s.notifyLocked()
	}
}

func (s *Synchronizer) applyGoods(records []Record) {
	items := mapAll(records, MapGood)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goodsItems = items
	s.goodsReady = true
	s.goodsSeq++
	s.notifyLocked()
}

func (s *Synchronizer) applyServices(records []Record) {
	items := mapAll(records, MapService)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serviceItems = items
	s.servicesReady = true
	s.servicesSeq++
	s.notifyLocked()
}

// notifyLocked runs under s.mu so notifications keep update order.
func (s *Synchronizer) notifyLocked() {
	if !s.goodsReady || !s.servicesReady {
		return
	}
	merged := make([]Item, 0, len(s.goodsItems)+len(s.serviceItems))
	merged = append(merged, s.goodsItems...)
	merged = append(merged, s.serviceItems...)
	s.log.Debug("catalog updated",
		zap.Int("goods", len(s.goodsItems)), zap.Int("services", len(s.serviceItems)))
	if s.onChanged != nil {
		s.onChanged(merged)
	}
}

func (s *Synchronizer) sourceError(src Source) func(error) {
	return func(err error) { s.report(src, "catalog listener error", err) }
}

func (s *Synchronizer) report(src Source, msg string, err error) {
	s.log.Error(msg, zap.String("source", src.Name()), zap.Error(err))
	if s.onError != nil {
		s.onError(src.Name(), err)
	}
}

func mapAll(records []Record, mapFn func(Record) Item) []Item {
	items := make([]Item, 0, len(records))
	for _, r := range records {
		items = append(items, mapFn(r))
	}
	return items
}
