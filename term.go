package main

import (
	"fmt"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"
)

// keyHold is how long a directional key counts as held after its last
// press or repeat. Terminals report presses only, never releases.
const keyHold = 180 * time.Millisecond

// Cell is one character of a composed frame
type Cell struct {
	X, Y  int
	Rune  rune
	Style tcell.Style
}

var (
	styleHUD      = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	styleSelf     = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleOpponent = tcell.StyleDefault.Foreground(tcell.ColorAqua)
	styleHit      = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleShot     = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleTree     = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleHouse    = tcell.StyleDefault.Foreground(tcell.ColorOlive)
	styleMarker   = tcell.StyleDefault.Foreground(tcell.ColorFuchsia)
)

func spriteGlyph(s Sprite) (rune, tcell.Style) {
	switch s.Kind {
	case KindActor:
		return '@', styleSelf
	case KindOpponent:
		if s.Tint == TintHit {
			return 'X', styleHit
		}
		return 'O', styleOpponent
	case KindProjectile:
		return '*', styleShot
	case KindObstacle:
		if s.Obstacle == ObstacleHouse {
			return '#', styleHouse
		}
		return '^', styleTree
	}
	return '?', tcell.StyleDefault
}

// drawOrder puts scenery under moving things and the actor on top
func drawOrder(k EntityKind) int {
	switch k {
	case KindObstacle:
		return 0
	case KindProjectile:
		return 1
	case KindOpponent:
		return 2
	}
	return 3
}

func hudLine(h HUD) string {
	status := "online"
	if !h.Connected {
		status = "offline"
	}
	line := fmt.Sprintf(" %s | %s | hp %d | ammo %d | opponents %d | %s ",
		h.Identity, h.Mode, h.Health, h.Ammo, h.Opponents, status)
	if h.Eliminated {
		line += "| ELIMINATED "
	}
	return line
}

// composeCells lays out f on a width x height grid. Row 0 is the HUD; later
// cells overwrite earlier ones at the same position.
func composeCells(f *Frame, width, height int) []Cell {
	if width < 1 || height < 1 {
		return nil
	}
	cells := make([]Cell, 0, len(f.Sprites)+width+1)

	for pass := 0; pass <= 3; pass++ {
		for _, s := range f.Sprites {
			if drawOrder(s.Kind) != pass {
				continue
			}
			px, py, ok := f.Camera.ProjectToViewport(s.Position)
			if !ok {
				continue
			}
			x, y := int(math.Floor(px)), int(math.Floor(py))
			if x < 0 || x >= width || y < 1 || y >= height {
				continue
			}
			r, st := spriteGlyph(s)
			cells = append(cells, Cell{X: x, Y: y, Rune: r, Style: st})
		}
	}

	if f.Marker.Visible {
		x, y := int(math.Floor(f.Marker.X)), int(math.Floor(f.Marker.Y))
		if x >= 0 && x < width && y >= 1 && y < height {
			cells = append(cells, Cell{X: x, Y: y, Rune: '+', Style: styleMarker})
		}
	}

	hud := []rune(hudLine(f.HUD))
	for x := 0; x < width; x++ {
		r := ' '
		if x < len(hud) {
			r = hud[x]
		}
		cells = append(cells, Cell{X: x, Y: 0, Rune: r, Style: styleHUD})
	}
	return cells
}

// TermRenderer draws frames into a tcell screen
type TermRenderer struct {
	screen        tcell.Screen
	width, height int
}

// NewTermRenderer initializes screen for drawing and input
func NewTermRenderer(screen tcell.Screen) (*TermRenderer, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init screen: %w", err)
	}
	screen.EnableMouse(tcell.MouseMotionEvents)
	screen.HideCursor()
	screen.Clear()
	w, h := screen.Size()
	return &TermRenderer{screen: screen, width: w, height: h}, nil
}

// Size returns the drawable size in cells
func (r *TermRenderer) Size() (int, int) {
	return r.width, r.height
}

func (r *TermRenderer) Resize(width, height int) {
	r.width, r.height = width, height
	r.screen.Sync()
}

func (r *TermRenderer) Draw(f *Frame) error {
	r.screen.Clear()
	for _, c := range composeCells(f, r.width, r.height) {
		r.screen.SetContent(c.X, c.Y, c.Rune, nil, c.Style)
	}
	r.screen.Show()
	return nil
}

func (r *TermRenderer) Close() error {
	r.screen.Fini()
	return nil
}

// InputKind tags an InputEvent
type InputKind int

const (
	InputKey InputKind = iota
	InputPointer
	InputShoot
	InputResize
	InputQuit
)

// InputEvent is one decoded terminal event
type InputEvent struct {
	Kind          InputKind
	Key           Key
	Pointer       PointerOffset
	Width, Height int
}

// translateEvent maps a tcell event onto game input. width and height are the
// current screen size, used to scale mouse positions.
func translateEvent(ev tcell.Event, width, height int) (InputEvent, bool) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return InputEvent{Kind: InputQuit}, true
		case tcell.KeyUp:
			return InputEvent{Kind: InputKey, Key: KeyUp}, true
		case tcell.KeyDown:
			return InputEvent{Kind: InputKey, Key: KeyDown}, true
		case tcell.KeyLeft:
			return InputEvent{Kind: InputKey, Key: KeyLeft}, true
		case tcell.KeyRight:
			return InputEvent{Kind: InputKey, Key: KeyRight}, true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q', 'Q':
				return InputEvent{Kind: InputQuit}, true
			case ' ':
				return InputEvent{Kind: InputShoot}, true
			}
			if k, ok := KeyFromName(string(ev.Rune())); ok {
				return InputEvent{Kind: InputKey, Key: k}, true
			}
		}
	case *tcell.EventMouse:
		x, y := ev.Position()
		p := PointerFromViewport(float64(x)+0.5, float64(y)+0.5, width, height)
		if ev.Buttons()&tcell.Button1 != 0 {
			return InputEvent{Kind: InputShoot, Pointer: p}, true
		}
		return InputEvent{Kind: InputPointer, Pointer: p}, true
	case *tcell.EventResize:
		w, h := ev.Size()
		return InputEvent{Kind: InputResize, Width: w, Height: h}, true
	}
	return InputEvent{}, false
}

// pollInput forwards screen events until the screen is finalized
func pollInput(screen tcell.Screen, out chan<- tcell.Event) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			close(out)
			return
		}
		out <- ev
	}
}

// KeyLatch turns a stream of key presses into a held-key set. A key stays
// held until keyHold passes without a repeat, or until its opposite is
// pressed.
type KeyLatch struct {
	hold time.Duration
	seen map[Key]time.Time
}

// NewKeyLatch creates a latch; hold <= 0 uses keyHold
func NewKeyLatch(hold time.Duration) *KeyLatch {
	if hold <= 0 {
		hold = keyHold
	}
	return &KeyLatch{hold: hold, seen: make(map[Key]time.Time)}
}

func opposite(k Key) Key {
	switch k {
	case KeyUp:
		return KeyDown
	case KeyDown:
		return KeyUp
	case KeyLeft:
		return KeyRight
	case KeyRight:
		return KeyLeft
	}
	return 0
}

// Press records k as pressed at now
func (l *KeyLatch) Press(k Key, now time.Time) {
	delete(l.seen, opposite(k))
	l.seen[k] = now
}

// Held returns the keys still held at now, forgetting expired ones
func (l *KeyLatch) Held(now time.Time) KeySet {
	var s KeySet
	for k, t := range l.seen {
		if now.Sub(t) > l.hold {
			delete(l.seen, k)
			continue
		}
		s = s.With(k)
	}
	return s
}
