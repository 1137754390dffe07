package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/DreamSprite/server/internal/engine"
	"github.com/MRamiBalles/DreamSprite/server/internal/events"
	"github.com/MRamiBalles/DreamSprite/server/internal/network"
	"github.com/MRamiBalles/DreamSprite/server/internal/platform/logger"
)

const snapshotPoll = 250 * time.Millisecond

// backend is where the terminal gets its session from.
type backend interface {
	Send(a engine.Action) error
	Snapshots() <-chan engine.Snapshot
	Events() <-chan events.Event
	Close()
}

// offer replaces an unread snapshot so the view always gets the latest.
func offer(ch chan engine.Snapshot, s engine.Snapshot) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// ---------------------------------------------------------
// Local: an in-process engine on the wall clock
// ---------------------------------------------------------

type localBackend struct {
	eng    *engine.Engine
	cancel context.CancelFunc
	unsub  func()
	snaps  chan engine.Snapshot
	evs    chan events.Event
}

func newLocalBackend(setup engine.Setup) *localBackend {
	el := events.NewEventLog(nil)
	eng := engine.NewEngine(el, logger.NewNopLogger(), setup)

	ctx, cancel := context.WithCancel(context.Background())
	b := &localBackend{
		eng:    eng,
		cancel: cancel,
		snaps:  make(chan engine.Snapshot, 1),
		evs:    make(chan events.Event, 64),
	}
	b.unsub = el.Subscribe(func(e events.Event) {
		select {
		case b.evs <- e:
		default:
		}
	})
	eng.Start(ctx)
	go b.poll(ctx)
	return b
}

func (b *localBackend) poll(ctx context.Context) {
	t := time.NewTicker(snapshotPoll)
	defer t.Stop()
	for {
		if snap, err := b.eng.Inspect(ctx); err == nil {
			offer(b.snaps, snap)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (b *localBackend) Send(a engine.Action) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := b.eng.Dispatch(ctx, a); err != nil {
		return err
	}
	if snap, err := b.eng.Inspect(ctx); err == nil {
		offer(b.snaps, snap)
	}
	return nil
}

func (b *localBackend) Snapshots() <-chan engine.Snapshot { return b.snaps }
func (b *localBackend) Events() <-chan events.Event       { return b.evs }

func (b *localBackend) Close() {
	b.unsub()
	b.cancel()
	b.eng.Close()
}

// ---------------------------------------------------------
// Remote: websocket for events and actions, HTTP for snapshots
// ---------------------------------------------------------

type remoteBackend struct {
	conn       *websocket.Conn
	sessionURL string
	client     *http.Client
	writeMu    sync.Mutex
	cancel     context.CancelFunc
	snaps      chan engine.Snapshot
	evs        chan events.Event
}

// sessionURLFor maps ws://host/ws to http://host/api/session.
func sessionURLFor(wsURL string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/api/session"
	u.RawQuery = ""
	return u.String(), nil
}

func newRemoteBackend(wsURL string) (*remoteBackend, error) {
	sessionURL, err := sessionURLFor(wsURL)
	if err != nil {
		return nil, fmt.Errorf("dreamterm: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dreamterm: dial %s: %w", wsURL, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &remoteBackend{
		conn:       conn,
		sessionURL: sessionURL,
		client:     &http.Client{Timeout: 2 * time.Second},
		cancel:     cancel,
		snaps:      make(chan engine.Snapshot, 1),
		evs:        make(chan events.Event, 64),
	}
	go b.read()
	go b.poll(ctx)
	return b, nil
}

func (b *remoteBackend) read() {
	for {
		_, frame, err := b.conn.ReadMessage()
		if err != nil {
			close(b.evs)
			return
		}
		envs, _ := network.DecodeFrame(frame)
		for _, env := range envs {
			switch env.Type {
			case network.MsgTypeSnapshot:
				var s engine.Snapshot
				if json.Unmarshal(env.Payload, &s) == nil {
					offer(b.snaps, s)
				}
			case network.MsgTypeEvent:
				var e events.Event
				if json.Unmarshal(env.Payload, &e) == nil {
					select {
					case b.evs <- e:
					default:
					}
				}
			}
		}
	}
}

// poll keeps vitals and sleep time fresh between phase changes.
func (b *remoteBackend) poll(ctx context.Context) {
	t := time.NewTicker(snapshotPoll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.sessionURL, nil)
		if err != nil {
			return
		}
		resp, err := b.client.Do(req)
		if err != nil {
			continue
		}
		var s engine.Snapshot
		if resp.StatusCode == http.StatusOK && json.NewDecoder(resp.Body).Decode(&s) == nil {
			offer(b.snaps, s)
		}
		resp.Body.Close()
	}
}

func (b *remoteBackend) Send(a engine.Action) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.conn.WriteJSON(a)
}

func (b *remoteBackend) Snapshots() <-chan engine.Snapshot { return b.snaps }
func (b *remoteBackend) Events() <-chan events.Event       { return b.evs }

func (b *remoteBackend) Close() {
	b.cancel()
	b.conn.Close()
}
