package event

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Versifine/locorig/internal/rotation"
	"github.com/go-gl/mathgl/mgl64"
)

// TestNewBus 测试创建新的事件总线
func TestNewBus(t *testing.T) {
	bus := NewBus()
	if bus == nil {
		t.Fatal("NewBus() 返回 nil")
	}
	if bus.handlers == nil {
		t.Fatal("NewBus() handlers map 未初始化")
	}
}

// TestSubscribeAndPublish 测试订阅和发布事件
func TestSubscribeAndPublish(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	var received any
	bus.Subscribe("test", func(event any) {
		mu.Lock()
		defer mu.Unlock()
		received = event
	})

	bus.Publish("test", "hello")
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	if received != "hello" {
		t.Errorf("handler 收到 %v, 期望 %v", received, "hello")
	}
}

// TestPublishNoSubscribers 测试发布无订阅者的事件不会 panic
func TestPublishNoSubscribers(t *testing.T) {
	bus := NewBus()
	// 不应 panic
	bus.Publish("nonexistent", "data")
	bus.Wait()
}

// TestMultipleSubscribers 测试多个订阅者
func TestMultipleSubscribers(t *testing.T) {
	bus := NewBus()
	var count int32

	for i := 0; i < 3; i++ {
		bus.Subscribe("test", func(event any) {
			atomic.AddInt32(&count, 1)
		})
	}

	bus.Publish("test", "data")
	bus.Wait()

	if got := atomic.LoadInt32(&count); got != 3 {
		t.Errorf("handler 被调用 %d 次, 期望 3 次", got)
	}
}

// TestMultipleEvents 测试不同事件名称互不干扰
func TestMultipleEvents(t *testing.T) {
	bus := NewBus()
	var jumpReceived, landedReceived atomic.Bool

	bus.Subscribe(EventJump, func(event any) {
		jumpReceived.Store(true)
	})
	bus.Subscribe(EventLanded, func(event any) {
		landedReceived.Store(true)
	})

	bus.Publish(EventJump, &JumpEvent{Applied: true})
	bus.Wait()

	if !jumpReceived.Load() {
		t.Error("jump handler 应该被调用")
	}
	if landedReceived.Load() {
		t.Error("landed handler 不应该被调用")
	}
}

// TestConcurrentSubscribeAndPublish 测试并发订阅和发布的线程安全性
func TestConcurrentSubscribeAndPublish(t *testing.T) {
	bus := NewBus()
	var count atomic.Int64

	// 先订阅一个handler
	bus.Subscribe("test", func(event any) {
		count.Add(1)
	})

	var wg sync.WaitGroup

	// 并发发布
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish("test", "data")
		}()
	}

	// 并发订阅
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Subscribe("test", func(event any) {
				count.Add(1)
			})
		}()
	}

	wg.Wait()
	bus.Wait()

	if count.Load() < 100 {
		t.Errorf("至少应该收到 100 次事件, 实际收到 %d 次", count.Load())
	}
}

// TestPublishEventData 测试事件数据正确传递
func TestPublishEventData(t *testing.T) {
	bus := NewBus()

	got := make(chan *DriveChangeEvent, 1)
	bus.Subscribe(EventDriveChange, func(event any) {
		got <- event.(*DriveChangeEvent)
	})

	sent := &DriveChangeEvent{From: rotation.DriveLocal, To: rotation.DriveOverride, Yaw: 42}
	bus.Publish(EventDriveChange, sent)
	bus.Wait()

	received := <-got
	if received.From != rotation.DriveLocal || received.To != rotation.DriveOverride || received.Yaw != 42 {
		t.Errorf("收到 %+v, 期望 %+v", received, sent)
	}
}

// TestHandlerPanicIsRecovered 测试 handler panic 不会影响其他 handler
func TestHandlerPanicIsRecovered(t *testing.T) {
	bus := NewBus()
	var ok atomic.Bool

	bus.Subscribe("test", func(event any) {
		panic("boom")
	})
	bus.Subscribe("test", func(event any) {
		ok.Store(true)
	})

	bus.Publish("test", nil)
	bus.Wait()

	if !ok.Load() {
		t.Error("第二个 handler 应该被调用")
	}
}

// TestPublishPreservesOrderPerSubscriber 测试同一订阅者按发布顺序收到事件
func TestPublishPreservesOrderPerSubscriber(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	var got []int
	bus.Subscribe("test", func(event any) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, event.(int))
	})

	for i := 0; i < 200; i++ {
		bus.Publish("test", i)
	}
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 200 {
		t.Fatalf("收到 %d 个事件, 期望 200", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("第 %d 个事件为 %d, 顺序错乱", i, v)
		}
	}
}

// TestSubscribeAllKeepsCrossEventOrder 测试跨事件名订阅同样保持发布顺序
func TestSubscribeAllKeepsCrossEventOrder(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	var got []string
	bus.SubscribeAll([]string{EventJump, EventAirborne, EventLanded}, func(event any) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, eventName(event))
	})

	want := []string{EventJump, EventAirborne, EventLanded, EventJump, EventAirborne, EventLanded}
	for _, name := range want {
		switch name {
		case EventJump:
			bus.Publish(name, &JumpEvent{Applied: true})
		case EventAirborne:
			bus.Publish(name, &AirborneEvent{})
		case EventLanded:
			bus.Publish(name, &LandedEvent{})
		}
	}
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("顺序 %v, 期望 %v", got, want)
	}
}

// TestLogEvents 测试日志订阅覆盖所有事件
func TestLogEvents(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&lockedWriter{mu: &mu, w: &buf}, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(prev)

	bus := NewBus()
	LogEvents(bus)

	bus.Publish(EventLanded, &LandedEvent{Position: mgl64.Vec3{1, 2, 3}, AirTicks: 12})
	bus.Publish(EventTeleport, &TeleportEvent{To: mgl64.Vec3{4, 5, 6}})
	bus.Publish(EventBlocked, "not an event")
	bus.Wait()

	mu.Lock()
	out := buf.String()
	mu.Unlock()
	for _, want := range []string{"Rig landed", "air_ticks=12", "Rig teleported", "Invalid event type"} {
		if !strings.Contains(out, want) {
			t.Errorf("日志输出缺少 %q: %s", want, out)
		}
	}
	// 日志行按发布顺序输出
	if strings.Index(out, "Rig landed") > strings.Index(out, "Rig teleported") ||
		strings.Index(out, "Rig teleported") > strings.Index(out, "Invalid event type") {
		t.Errorf("日志顺序错乱: %s", out)
	}
}

type lockedWriter struct {
	mu *sync.Mutex
	w  *bytes.Buffer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
