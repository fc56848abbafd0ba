// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSubscribePublish(t *testing.T) {
	bus := NewEventBus(nil, nil)
	defer bus.Stop()
	_, evtCh := bus.Subscribe("test.event")
	bus.Publish("test.event", NewEvent("test.event", "payload"))
	select {
	case evt := <-evtCh:
		assert.Equal(t, EventType("test.event"), evt.Type)
		assert.Equal(t, "payload", evt.Data)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPublishOnlyMatchingType(t *testing.T) {
	bus := NewEventBus(nil, nil)
	defer bus.Stop()
	_, evtCh := bus.Subscribe("test.wanted")
	bus.Publish("test.other", NewEvent("test.other", nil))
	select {
	case evt := <-evtCh:
		t.Fatalf("unexpected event: %v", evt)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeFunc(t *testing.T) {
	bus := NewEventBus(nil, nil)
	var wg sync.WaitGroup
	wg.Add(2)
	bus.SubscribeFunc("test.event", func(evt Event) {
		wg.Done()
	})
	bus.Publish("test.event", NewEvent("test.event", 1))
	bus.Publish("test.event", NewEvent("test.event", 2))
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for handler calls")
	}
	// Stop closes the subscriber channel, which ends the handler goroutine
	bus.Stop()
}

func TestUnsubscribe(t *testing.T) {
	bus := NewEventBus(nil, nil)
	defer bus.Stop()
	subId, evtCh := bus.Subscribe("test.event")
	bus.Unsubscribe("test.event", subId)
	// Channel is closed on unsubscribe
	_, ok := <-evtCh
	require.False(t, ok)
	// Publishing after unsubscribe must not block or panic
	bus.Publish("test.event", NewEvent("test.event", nil))
}

func TestPublishAsyncDelivers(t *testing.T) {
	bus := NewEventBus(nil, nil)
	defer bus.Stop()
	_, evtCh := bus.Subscribe("test.event")
	require.True(t, bus.PublishAsync("test.event", NewEvent("test.event", "payload")))
	select {
	case evt := <-evtCh:
		assert.Equal(t, "payload", evt.Data)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for async event")
	}
}

func TestPublishAsyncSlowSubscriber(t *testing.T) {
	bus := NewEventBus(nil, nil)
	// Subscribe without consuming so the subscriber channel fills up
	_, evtCh := bus.Subscribe("test.event")
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range EventQueueSize + 30 {
			bus.PublishAsync("test.event", NewEvent("test.event", i))
		}
	}()
	// The publisher must finish even though nothing is draining the
	// subscriber channel
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("PublishAsync blocked on a slow subscriber")
	}
	// Drain so shutdown is not held up by an in-flight delivery
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range evtCh {
		}
	}()
	bus.Stop()
	wg.Wait()
}

func TestPublishAsyncAfterStop(t *testing.T) {
	bus := NewEventBus(nil, nil)
	bus.Stop()
	assert.False(t, bus.PublishAsync("test.event", NewEvent("test.event", nil)))
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	bus := NewEventBus(nil, nil)
	defer bus.Stop()
	subId, evtCh := bus.Subscribe("test.event")
	var consumer sync.WaitGroup
	consumer.Add(1)
	go func() {
		defer consumer.Done()
		for range evtCh {
		}
	}()
	// Publish concurrently with Unsubscribe; deliveries after the
	// channel closes must be dropped, not panic the publisher
	var publisher sync.WaitGroup
	publisher.Add(1)
	go func() {
		defer publisher.Done()
		for i := range 500 {
			bus.Publish("test.event", NewEvent("test.event", i))
		}
	}()
	time.Sleep(time.Millisecond)
	bus.Unsubscribe("test.event", subId)
	publisher.Wait()
	consumer.Wait()
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewEventBus(nil, nil)
	defer bus.Stop()
	_, ch1 := bus.Subscribe("test.event")
	_, ch2 := bus.Subscribe("test.event")
	bus.Publish("test.event", NewEvent("test.event", "fanout"))
	for _, evtCh := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-evtCh:
			assert.Equal(t, "fanout", evt.Data)
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for event")
		}
	}
}
