package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quakewatch/quakewatch/internal/fusion"
	"github.com/quakewatch/quakewatch/internal/notice"
	"github.com/quakewatch/quakewatch/internal/quake"
	"github.com/quakewatch/quakewatch/internal/worker"
)

const (
	itemBuffer   = 512
	noticeBuffer = 64

	fusionWorkers = 2

	superviseEvery = 30 * time.Second
	matureEvery    = time.Minute
)

// Manager owns the receivers, funnels their reports through the
// correlator and pushes the resulting notices out. Crashed receivers
// are rebuilt from their resource strings every supervision tick;
// receivers sitting out a rate-limit cool-off report Running and are
// left alone.
type Manager struct {
	env        Env
	correlator *fusion.Correlator
	learner    fusion.Learner
	census     notice.Census

	items   chan Item
	pool    *worker.WorkerPool
	notices chan *notice.Notice

	mu        sync.Mutex
	receivers map[string]Receiver

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewManager(env Env, correlator *fusion.Correlator, learner fusion.Learner, census notice.Census) *Manager {
	correlator.SetRetention(func(event *fusion.Event) bool {
		n := notice.New(event, "retention")
		return n.Timely() != ""
	})

	m := &Manager{
		env:        env,
		correlator: correlator,
		learner:    learner,
		census:     census,
		items:      make(chan Item, itemBuffer),
		notices:    make(chan *notice.Notice, noticeBuffer),
		receivers:  make(map[string]Receiver),
	}
	m.pool = worker.NewWorkerPool("fusion", fusionWorkers, itemBuffer/2, m.process)
	return m
}

// Add registers a source. Call before Start; sources added later are
// picked up by the next supervision tick.
func (m *Manager) Add(resource string) error {
	receiver, err := New(resource, m.env)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.receivers[resource] = receiver
	m.mu.Unlock()

	kind, _ := Accepts(resource)
	slog.Info("source registered", "resource", resource, "kind", kind)
	return nil
}

// Notices is the fused, scored output stream.
func (m *Manager) Notices() <-chan *notice.Notice { return m.notices }

// Inject feeds a synthetic report into the pipeline as if a receiver
// had produced it. Non-blocking; returns false when the queue is full.
func (m *Manager) Inject(report quake.Report, provider string) bool {
	select {
	case m.items <- Item{Report: report, Provider: provider}:
		return true
	default:
		return false
	}
}

func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	m.mu.Lock()
	for _, receiver := range m.receivers {
		m.launch(ctx, receiver)
	}
	m.mu.Unlock()

	m.pool.Start(ctx)
	m.wg.Add(2)
	go m.consume(ctx)
	go m.supervise(ctx)
}

func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.pool.Stop()
	close(m.notices)
}

func (m *Manager) launch(ctx context.Context, receiver Receiver) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		receiver.Run(ctx, m.items)
	}()
}

// supervise restarts dead receivers and ages the correlator history.
func (m *Manager) supervise(ctx context.Context) {
	defer m.wg.Done()

	restart := time.NewTicker(superviseEvery)
	defer restart.Stop()
	mature := time.NewTicker(matureEvery)
	defer mature.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-restart.C:
			m.revive(ctx)
		case <-mature.C:
			m.correlator.Mature(ctx, m.learner)
		}
	}
}

func (m *Manager) revive(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for resource, receiver := range m.receivers {
		if receiver.Running() {
			continue
		}
		fresh, err := New(resource, m.env)
		if err != nil {
			slog.Error("cannot rebuild receiver", "resource", resource, "error", err)
			continue
		}
		slog.Warn("restarting dead receiver", "resource", resource)
		m.receivers[resource] = fresh
		m.launch(ctx, fresh)
	}
}

// consume moves incoming reports onto the fusion pool. A stalled pool
// sheds rather than backing up into the receivers.
func (m *Manager) consume(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case item := <-m.items:
			m.pool.TrySubmit(item)
		}
	}
}

// process runs one report through the correlator and turns a fused
// event into a notice. A full notice channel sheds rather than stalls
// the pool.
func (m *Manager) process(ctx context.Context, job worker.Job) error {
	item, ok := job.(Item)
	if !ok {
		return nil
	}

	event, err := m.correlator.Process(ctx, item.Report)
	if err != nil {
		slog.Debug("report not fused", "provider", item.Provider, "error", err)
		return err
	}
	if event == nil {
		return nil
	}

	n := notice.New(event, item.Provider)
	n.Census = m.census

	select {
	case m.notices <- n:
	default:
		slog.Warn("notice queue full, shedding",
			"provider", item.Provider, "region", n.Tag)
	}
	return nil
}
