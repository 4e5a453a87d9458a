// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package connection

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ikmak/mongo-bulkwrite/event"
	"github.com/ikmak/mongo-bulkwrite/internal/drivertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventRecorder struct {
	sync.Mutex
	types []string
}

func (r *eventRecorder) monitor() *event.PoolMonitor {
	return &event.PoolMonitor{Event: func(evt *event.PoolEvent) {
		r.Lock()
		defer r.Unlock()
		r.types = append(r.types, evt.Type)
	}}
}

func (r *eventRecorder) count(typ string) int {
	r.Lock()
	defer r.Unlock()
	n := 0
	for _, t := range r.types {
		if t == typ {
			n++
		}
	}
	return n
}

func TestPool(t *testing.T) {
	ctx := context.Background()

	t.Run("NewPool", func(t *testing.T) {
		t.Run("should be connected", func(t *testing.T) {
			P, err := NewPool(Addr(""), 1, 2)
			require.NoError(t, err)
			p := P.(*pool)
			require.NoError(t, p.Connect(ctx))
			assert.Equal(t, connected, p.connected)
		})
		t.Run("size cannot be larger than capacity", func(t *testing.T) {
			_, err := NewPool(Addr(""), 5, 1)
			assert.Equal(t, ErrSizeLargerThanCapacity, err)
		})
		t.Run("cannot connect twice", func(t *testing.T) {
			p, err := NewPool(Addr(""), 1, 2)
			require.NoError(t, err)
			require.NoError(t, p.Connect(ctx))
			assert.Equal(t, ErrPoolConnected, p.Connect(ctx))
		})
	})
	t.Run("Disconnect", func(t *testing.T) {
		t.Run("cannot disconnect twice", func(t *testing.T) {
			p, err := NewPool(Addr(""), 1, 2)
			require.NoError(t, err)
			require.NoError(t, p.Connect(ctx))
			require.NoError(t, p.Disconnect(ctx))
			assert.Equal(t, ErrPoolDisconnected, p.Disconnect(ctx))
		})
		t.Run("closes idle connections", func(t *testing.T) {
			s := drivertest.NewServer(8)
			defer s.Close()
			rec := &eventRecorder{}
			p, err := NewPool(Addr("localhost"), 3, 3, withServer(s), WithMonitor(func(*event.PoolMonitor) *event.PoolMonitor { return rec.monitor() }))
			require.NoError(t, err)
			require.NoError(t, p.Connect(ctx))

			conns := [3]Connection{}
			for idx := range conns {
				conns[idx], err = p.Get(ctx)
				require.NoError(t, err)
			}
			for idx := range conns {
				require.NoError(t, conns[idx].Close())
			}
			assert.Equal(t, 3, s.Dialed())

			dctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			require.NoError(t, p.Disconnect(dctx))
			assert.Equal(t, 3, rec.count(event.ConnectionClosed))
			assert.Equal(t, 1, rec.count(event.PoolClosedEvent))

			ok := p.(*pool).sem.TryAcquire(int64(p.(*pool).capacity))
			require.True(t, ok, "clean shutdown should acquire and release semaphore, but semaphore still held")
			p.(*pool).sem.Release(int64(p.(*pool).capacity))
		})
		t.Run("closes inflight connections when context expires", func(t *testing.T) {
			s := drivertest.NewServer(8)
			defer s.Close()
			p, err := NewPool(Addr("localhost"), 3, 3, withServer(s))
			require.NoError(t, err)
			require.NoError(t, p.Connect(ctx))

			conns := [3]Connection{}
			for idx := range conns {
				conns[idx], err = p.Get(ctx)
				require.NoError(t, err)
			}
			require.NoError(t, conns[0].Close())

			dctx, cancel := context.WithCancel(ctx)
			cancel()
			require.NoError(t, p.Disconnect(dctx))
			for _, c := range conns {
				assert.False(t, c.Alive())
			}
		})
	})
	t.Run("Get", func(t *testing.T) {
		t.Run("return of a closed pool", func(t *testing.T) {
			p, err := NewPool(Addr("localhost"), 1, 1)
			require.NoError(t, err)
			_, err = p.Get(ctx)
			assert.Equal(t, ErrPoolClosed, err)
		})
		t.Run("reuses returned connections", func(t *testing.T) {
			s := drivertest.NewServer(8)
			defer s.Close()
			rec := &eventRecorder{}
			p, err := NewPool(Addr("localhost"), 2, 2, withServer(s), WithMonitor(func(*event.PoolMonitor) *event.PoolMonitor { return rec.monitor() }))
			require.NoError(t, err)
			require.NoError(t, p.Connect(ctx))

			first, err := p.Get(ctx)
			require.NoError(t, err)
			id := first.ID()
			require.NoError(t, first.Close())

			second, err := p.Get(ctx)
			require.NoError(t, err)
			assert.Equal(t, id, second.ID())
			assert.Equal(t, 1, s.Dialed())
			assert.Equal(t, 1, rec.count(event.ConnectionCreated))
			assert.Equal(t, 2, rec.count(event.GetSucceeded))
			assert.Equal(t, 1, rec.count(event.ConnectionReturned))
		})
		t.Run("drained connections are not reused", func(t *testing.T) {
			s := drivertest.NewServer(8)
			defer s.Close()
			p, err := NewPool(Addr("localhost"), 2, 2, withServer(s))
			require.NoError(t, err)
			require.NoError(t, p.Connect(ctx))

			first, err := p.Get(ctx)
			require.NoError(t, err)
			require.NoError(t, p.Drain())
			require.NoError(t, first.Close())
			assert.False(t, first.Alive())

			second, err := p.Get(ctx)
			require.NoError(t, err)
			assert.NotEqual(t, first.ID(), second.ID())
			assert.Equal(t, 2, s.Dialed())
		})
		t.Run("blocks at capacity", func(t *testing.T) {
			s := drivertest.NewServer(8)
			defer s.Close()
			rec := &eventRecorder{}
			p, err := NewPool(Addr("localhost"), 1, 1, withServer(s), WithMonitor(func(*event.PoolMonitor) *event.PoolMonitor { return rec.monitor() }))
			require.NoError(t, err)
			require.NoError(t, p.Connect(ctx))

			c, err := p.Get(ctx)
			require.NoError(t, err)
			defer c.Close()

			tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()
			_, err = p.Get(tctx)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
			assert.Equal(t, 1, rec.count(event.GetFailed))
		})
	})
}
