package input

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// latchRecorder implements Latches for testing
type latchRecorder struct {
	in1, in2 uint8
}

func (l *latchRecorder) SetInputBit(player, bit uint8, pressed bool) {
	latch := &l.in1
	if player == 2 {
		latch = &l.in2
	}
	if pressed {
		*latch |= 1 << bit
	} else {
		*latch &^= 1 << bit
	}
}

func TestApply_KeyDownShouldSetBit(t *testing.T) {
	latches := &latchRecorder{}

	if err := Apply([]Event{KeyDown(Player1Shoot)}, latches); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if latches.in1 != 0x10 {
		t.Errorf("Expected In1=0x10, got 0x%02X", latches.in1)
	}

	if err := Apply([]Event{KeyUp(Player1Shoot)}, latches); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if latches.in1 != 0x00 {
		t.Errorf("Expected In1 cleared, got 0x%02X", latches.in1)
	}
}

func TestApply_ShouldRoutePlayersToLatches(t *testing.T) {
	tests := []struct {
		key         Key
		expectedIn1 uint8
		expectedIn2 uint8
	}{
		{InsertCoin, 0x01, 0x00},
		{SelectTwoPlayers, 0x02, 0x00},
		{SelectOnePlayer, 0x04, 0x00},
		{Player1Shoot, 0x10, 0x00},
		{Player1Left, 0x20, 0x00},
		{Player1Right, 0x40, 0x00},
		{Player2Shoot, 0x00, 0x10},
		{Player2Left, 0x00, 0x20},
		{Player2Right, 0x00, 0x40},
	}

	for _, test := range tests {
		latches := &latchRecorder{}
		if err := Apply([]Event{KeyDown(test.key)}, latches); err != nil {
			t.Fatalf("%s: unexpected error %v", test.key, err)
		}
		if latches.in1 != test.expectedIn1 || latches.in2 != test.expectedIn2 {
			t.Errorf("%s: Expected In1=0x%02X In2=0x%02X, got 0x%02X 0x%02X",
				test.key, test.expectedIn1, test.expectedIn2, latches.in1, latches.in2)
		}
	}
}

func TestApply_QuitShouldStopProcessing(t *testing.T) {
	latches := &latchRecorder{}
	events := []Event{KeyDown(InsertCoin), Quit(), KeyDown(Player1Shoot)}

	err := Apply(events, latches)

	if !errors.Is(err, ErrQuit) {
		t.Errorf("Expected ErrQuit, got %v", err)
	}
	if latches.in1 != 0x01 {
		t.Errorf("Expected only events before quit applied, got In1=0x%02X", latches.in1)
	}
}

func TestApply_EmptyIsNoop(t *testing.T) {
	latches := &latchRecorder{in1: 0x05}

	if err := Apply(nil, latches); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if latches.in1 != 0x05 {
		t.Errorf("Expected latches untouched, got 0x%02X", latches.in1)
	}
}

func TestParseKeyName(t *testing.T) {
	key, err := ParseKeyName("player2left")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if key != Player2Left {
		t.Errorf("Expected Player2Left, got %v", key)
	}

	if _, err := ParseKeyName("Tilt"); err == nil {
		t.Error("Expected error for unknown key")
	}
}

func TestKeyString(t *testing.T) {
	if InsertCoin.String() != "InsertCoin" {
		t.Errorf("Expected InsertCoin, got %s", InsertCoin.String())
	}
	if got := (Key{Player: 2, Bit: 7}).String(); got != "P2.bit7" {
		t.Errorf("Expected P2.bit7, got %s", got)
	}
}

func TestQueue_ShouldDrainInOrder(t *testing.T) {
	queue := NewQueue()
	queue.Notify(KeyDown(InsertCoin))
	queue.Notify(KeyUp(InsertCoin))

	events := queue.PollEvents()

	if len(events) != 2 || events[0].Type != EventKeyDown || events[1].Type != EventKeyUp {
		t.Errorf("Expected KeyDown then KeyUp, got %v", events)
	}
	if queue.Len() != 0 {
		t.Errorf("Expected queue drained, got %d pending", queue.Len())
	}
	if events := queue.PollEvents(); len(events) != 0 {
		t.Errorf("Expected no events, got %v", events)
	}
}

func TestQueue_ConcurrentNotify(t *testing.T) {
	queue := NewQueue()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				queue.Notify(KeyDown(Player1Left))
			}
		}()
	}
	wg.Wait()

	if got := len(queue.PollEvents()); got != 800 {
		t.Errorf("Expected 800 events, got %d", got)
	}
}

func TestController_PressShouldEmitOnce(t *testing.T) {
	controller := NewController(0)
	now := time.Now()

	first := controller.Press(Player1Shoot, now)
	repeat := controller.Press(Player1Shoot, now.Add(time.Millisecond))

	if len(first) != 1 || first[0] != KeyDown(Player1Shoot) {
		t.Errorf("Expected a single KeyDown, got %v", first)
	}
	if len(repeat) != 0 {
		t.Errorf("Expected repeat press to emit nothing, got %v", repeat)
	}
	if !controller.IsPressed(Player1Shoot) {
		t.Error("Expected Player1Shoot held")
	}
}

func TestController_ReleaseShouldEmitKeyUp(t *testing.T) {
	controller := NewController(0)
	controller.Press(Player1Left, time.Now())

	events := controller.Release(Player1Left)

	if len(events) != 1 || events[0] != KeyUp(Player1Left) {
		t.Errorf("Expected KeyUp, got %v", events)
	}
	if events := controller.Release(Player1Left); len(events) != 0 {
		t.Errorf("Expected second release to emit nothing, got %v", events)
	}
}

func TestController_ExpireShouldReleaseStaleKeys(t *testing.T) {
	controller := NewController(100 * time.Millisecond)
	start := time.Now()
	controller.Press(Player1Left, start)
	controller.Press(Player1Shoot, start.Add(80*time.Millisecond))

	events := controller.Expire(start.Add(120 * time.Millisecond))

	if len(events) != 1 || events[0] != KeyUp(Player1Left) {
		t.Errorf("Expected only Player1Left released, got %v", events)
	}
	if !controller.IsPressed(Player1Shoot) {
		t.Error("Expected recently refreshed key to stay held")
	}
}

func TestController_ExpireDisabledWithoutHoldTime(t *testing.T) {
	controller := NewController(0)
	controller.Press(InsertCoin, time.Now().Add(-time.Hour))

	if events := controller.Expire(time.Now()); len(events) != 0 {
		t.Errorf("Expected no expiry, got %v", events)
	}
}

func TestController_ReleaseAll(t *testing.T) {
	controller := NewController(0)
	now := time.Now()
	controller.Press(Player2Right, now)
	controller.Press(InsertCoin, now)

	events := controller.ReleaseAll()

	if len(events) != 2 || events[0] != KeyUp(InsertCoin) || events[1] != KeyUp(Player2Right) {
		t.Errorf("Expected ordered releases, got %v", events)
	}
	presses, releases, held := controller.GetDebugInfo()
	if presses != 2 || releases != 2 || held != 0 {
		t.Errorf("Expected 2/2/0, got %d/%d/%d", presses, releases, held)
	}
}
