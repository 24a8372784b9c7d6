package main

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
)

func cellAt(cells []Cell, x, y int) (Cell, bool) {
	var found Cell
	ok := false
	for _, c := range cells {
		if c.X == x && c.Y == y {
			found, ok = c, true
		}
	}
	return found, ok
}

func TestComposeCellsHUDAndActor(t *testing.T) {
	s := newTrainingSim(t)
	cells := composeCells(s.View(), 80, 24)

	var hud strings.Builder
	for x := 0; x < 80; x++ {
		c, ok := cellAt(cells, x, 0)
		if !ok {
			t.Fatalf("HUD row missing column %d", x)
		}
		hud.WriteRune(c.Rune)
	}
	if !strings.Contains(hud.String(), "me@x") || !strings.Contains(hud.String(), "ammo 50") {
		t.Errorf("HUD = %q", hud.String())
	}

	actorFound := false
	for _, c := range cells {
		if c.Rune == '@' && c.Y > 0 && abs(c.X-40) <= 1 && abs(c.Y-12) <= 1 {
			actorFound = true
		}
	}
	if !actorFound {
		t.Error("actor glyph should be drawn at the screen center")
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestComposeCellsClipsAndOrders(t *testing.T) {
	s := newTrainingSim(t)
	f := s.View()
	// a projectile sitting on the actor is drawn under it
	f.Sprites = append([]Sprite{{Kind: KindProjectile, Position: s.Actor().Position}}, f.Sprites...)
	cells := composeCells(f, 80, 24)

	var last rune
	for _, c := range cells {
		if c.Y > 0 && abs(c.X-40) <= 1 && abs(c.Y-12) <= 1 && (c.Rune == '*' || c.Rune == '@') {
			last = c.Rune
		}
		if c.X < 0 || c.X >= 80 || c.Y < 0 || c.Y >= 24 {
			t.Errorf("cell out of bounds: %+v", c)
		}
	}
	if last != '@' {
		t.Errorf("actor should be drawn last at its position, got %q", last)
	}
	if cells := composeCells(f, 0, 0); cells != nil {
		t.Error("empty screen composes nothing")
	}
}

func TestComposeCellsHitTint(t *testing.T) {
	s := newTrainingSim(t)
	s.World().Each(KindOpponent, func(_ Handle, e *Entity) { e.Opponent.Hit = true })
	for _, c := range composeCells(s.View(), 200, 100) {
		if c.Rune == 'O' {
			t.Error("hit dummies should be drawn as X")
		}
	}
}

func TestTranslateEvent(t *testing.T) {
	cases := []struct {
		ev   tcell.Event
		kind InputKind
		key  Key
	}{
		{tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), InputKey, KeyUp},
		{tcell.NewEventKey(tcell.KeyRune, 'd', tcell.ModNone), InputKey, KeyRight},
		{tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), InputShoot, 0},
		{tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), InputQuit, 0},
		{tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl), InputQuit, 0},
	}
	for _, c := range cases {
		in, ok := translateEvent(c.ev, 80, 24)
		if !ok || in.Kind != c.kind || in.Key != c.key {
			t.Errorf("translate %v = %+v %v, want kind %d key %d", c.ev, in, ok, c.kind, c.key)
		}
	}

	if _, ok := translateEvent(tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModNone), 80, 24); ok {
		t.Error("unbound key should be ignored")
	}

	in, ok := translateEvent(tcell.NewEventMouse(79, 12, tcell.ButtonNone, tcell.ModNone), 80, 24)
	if !ok || in.Kind != InputPointer || in.Pointer.X < 0.9 {
		t.Errorf("mouse move = %+v %v", in, ok)
	}
	in, ok = translateEvent(tcell.NewEventMouse(0, 0, tcell.Button1, tcell.ModNone), 80, 24)
	if !ok || in.Kind != InputShoot || in.Pointer.X > -0.9 {
		t.Errorf("mouse click = %+v %v", in, ok)
	}
	in, ok = translateEvent(tcell.NewEventResize(120, 40), 80, 24)
	if !ok || in.Kind != InputResize || in.Width != 120 || in.Height != 40 {
		t.Errorf("resize = %+v %v", in, ok)
	}
}

func TestKeyLatchExpires(t *testing.T) {
	l := NewKeyLatch(100 * time.Millisecond)
	t0 := time.Now()
	l.Press(KeyUp, t0)
	if !l.Held(t0.Add(50 * time.Millisecond)).Has(KeyUp) {
		t.Error("key should still be held")
	}
	l.Press(KeyUp, t0.Add(90*time.Millisecond))
	if !l.Held(t0.Add(150 * time.Millisecond)).Has(KeyUp) {
		t.Error("repeat should extend the hold")
	}
	if l.Held(t0.Add(300*time.Millisecond)) != 0 {
		t.Error("key should be released after the hold")
	}
}

func TestKeyLatchOppositeReleases(t *testing.T) {
	l := NewKeyLatch(0)
	now := time.Now()
	l.Press(KeyLeft, now)
	l.Press(KeyUp, now)
	l.Press(KeyRight, now)
	held := l.Held(now)
	if held.Has(KeyLeft) || !held.Has(KeyRight) || !held.Has(KeyUp) {
		t.Errorf("held = %04b", held)
	}
}

func TestTermRendererDraws(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	r, err := NewTermRenderer(screen)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	screen.SetSize(80, 24)
	r.Resize(80, 24)

	s := newTrainingSim(t)
	if err := r.Draw(s.View()); err != nil {
		t.Fatal(err)
	}
	var row strings.Builder
	for x := 0; x < 20; x++ {
		ch, _, _, _ := screen.GetContent(x, 0)
		row.WriteRune(ch)
	}
	if !strings.Contains(row.String(), "me@x") {
		t.Errorf("screen HUD = %q", row.String())
	}
}
