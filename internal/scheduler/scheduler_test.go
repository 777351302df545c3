package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"activation_backend/internal/activation/transport"
	"activation_backend/internal/events"
	"activation_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return "" }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

type testCronConfig struct {
	spec string
}

func (c testCronConfig) GetCronSecret() string        { return "" }
func (c testCronConfig) GetFollowupSweepSpec() string { return c.spec }

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event) {
	_ = b.PublishSync(ctx, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type fakeSweeper struct {
	calls     int
	published int
	err       error
}

func (f *fakeSweeper) SweepFollowups(context.Context) (*transport.FollowupSweepResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &transport.FollowupSweepResponse{Published: f.published}, nil
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter("test", io.Discard)
}

func TestScheduleMeetingReminderDeduplicatesByStart(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	startAt := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	payload := MeetingReminderPayload{
		MeetingID:      uuid.NewString(),
		OrganizationID: uuid.NewString(),
		StartAt:        startAt,
	}
	runAt := startAt.Add(-24 * time.Hour)

	if err := client.ScheduleMeetingReminder(context.Background(), payload, runAt); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := client.ScheduleMeetingReminder(context.Background(), payload, runAt); err != nil {
		t.Fatalf("expected duplicate enqueue to be ignored, got %v", err)
	}

	members, err := mr.ZMembers("asynq:{default}:scheduled")
	if err != nil {
		t.Fatalf("read scheduled set: %v", err)
	}
	if len(members) != 1 || members[0] != reminderTaskID(payload) {
		t.Fatalf("expected one scheduled reminder, got %v", members)
	}

	moved := payload
	moved.StartAt = startAt.Add(2 * time.Hour)
	if err := client.ScheduleMeetingReminder(context.Background(), moved, runAt.Add(2*time.Hour)); err != nil {
		t.Fatalf("schedule moved: %v", err)
	}
	members, _ = mr.ZMembers("asynq:{default}:scheduled")
	if len(members) != 2 {
		t.Fatalf("expected a second reminder for the new start, got %v", members)
	}
}

func TestNilClientIsNoop(t *testing.T) {
	var client *Client
	if err := client.ScheduleMeetingReminder(context.Background(), MeetingReminderPayload{}, time.Now()); err != nil {
		t.Fatalf("expected nil client to be a no-op, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("expected nil close, got %v", err)
	}
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{}); err == nil {
		t.Fatal("expected error without redis url")
	}
}

func TestRedisClientOptParsesURL(t *testing.T) {
	opt, err := redisClientOpt("rediss://:secret@cache.internal:6380/2", true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opt.Addr != "cache.internal:6380" || opt.Password != "secret" || opt.DB != 2 {
		t.Fatalf("unexpected options %+v", opt)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatal("expected insecure TLS config")
	}
}

func TestHandleMeetingReminderPublishesEvent(t *testing.T) {
	bus := &recordingBus{}
	w := &Worker{bus: bus, log: testLogger()}

	payload := MeetingReminderPayload{
		MeetingID:      uuid.NewString(),
		OrganizationID: uuid.NewString(),
		StartAt:        time.Date(2026, 11, 3, 15, 0, 0, 0, time.UTC),
	}
	task, err := NewMeetingReminderTask(payload)
	if err != nil {
		t.Fatalf("task: %v", err)
	}

	if err := w.handleMeetingReminder(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(bus.events) != 1 {
		t.Fatalf("expected one event, got %d", len(bus.events))
	}
	evt, ok := bus.events[0].(events.MeetingReminderDue)
	if !ok {
		t.Fatalf("unexpected event %T", bus.events[0])
	}
	if evt.MeetingID.String() != payload.MeetingID || !evt.StartAt.Equal(payload.StartAt) {
		t.Fatalf("unexpected event payload %+v", evt)
	}
}

func TestHandleMeetingReminderSkipsRetryOnBadPayload(t *testing.T) {
	w := &Worker{bus: &recordingBus{}, log: testLogger()}

	err := w.handleMeetingReminder(context.Background(), asynq.NewTask(TaskMeetingReminder, []byte(`{"meetingId":"nope"}`)))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestHandleNotificationOutboxDuePublishesEvent(t *testing.T) {
	bus := &recordingBus{}
	w := &Worker{bus: bus, log: testLogger()}

	outboxID := uuid.New()
	tenantID := uuid.New()
	task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{
		OutboxID: outboxID.String(),
		TenantID: tenantID.String(),
	})
	if err != nil {
		t.Fatalf("task: %v", err)
	}

	if err := w.handleNotificationOutboxDue(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	evt, ok := bus.events[0].(events.NotificationOutboxDue)
	if !ok || evt.OutboxID != outboxID || evt.TenantID != tenantID {
		t.Fatalf("unexpected event %+v", bus.events[0])
	}
}

func TestFollowupSweepRunOnce(t *testing.T) {
	cases := []struct {
		name    string
		sweeper *fakeSweeper
		want    int
	}{
		{"published", &fakeSweeper{published: 3}, 3},
		{"error", &fakeSweeper{err: errors.New("db down")}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sweep, err := NewFollowupSweep(testCronConfig{}, tc.sweeper, testLogger())
			if err != nil {
				t.Fatalf("new sweep: %v", err)
			}
			if got := sweep.RunOnce(context.Background()); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
			if tc.sweeper.calls != 1 {
				t.Fatalf("expected one sweep call, got %d", tc.sweeper.calls)
			}
		})
	}
}

func TestFollowupSweepRejectsBadSpec(t *testing.T) {
	if _, err := NewFollowupSweep(testCronConfig{spec: "every now and then"}, &fakeSweeper{}, testLogger()); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestFollowupSweepRunStopsOnCancel(t *testing.T) {
	sweep, err := NewFollowupSweep(testCronConfig{spec: "@every 1h"}, &fakeSweeper{}, testLogger())
	if err != nil {
		t.Fatalf("new sweep: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweep.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not stop after cancel")
	}
}
