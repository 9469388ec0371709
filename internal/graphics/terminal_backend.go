package graphics

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"invaders/internal/input"
)

// Terminals only report key presses, so a held key is released once no
// repeat has arrived within this window
const terminalKeyHold = 150 * time.Millisecond

// A trailing escape byte waits this long for the rest of an arrow key
// sequence before it counts as a quit
const terminalEscapeWait = 50 * time.Millisecond

// TerminalBackend implements the Backend interface for terminal-based rendering
type TerminalBackend struct {
	initialized bool
	config      Config
}

// TerminalWindow renders frames with ANSI half-block characters and reads
// the keyboard from stdin in raw mode
type TerminalWindow struct {
	*FrameBuffer

	title   string
	width   int
	height  int
	running bool

	out       io.Writer
	outFd     int
	inFd      int
	oldState  *term.State
	keys      chan []byte
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	pending   []byte
	pendingAt time.Time
	keymap    Keymap
	control   *input.Controller
	events    *input.Queue
	cols      int
	rows      int
	debug     bool
	frameSkip int
	frame     int
}

// NewTerminalBackend creates a new terminal graphics backend
func NewTerminalBackend() Backend {
	return &TerminalBackend{}
}

// Initialize initializes the terminal backend
func (b *TerminalBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("terminal backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow switches stdin to raw mode and starts the key reader
func (b *TerminalBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	w := newTerminalWindow(title, width, height, os.Stdout, b.config)
	w.outFd = int(os.Stdout.Fd())
	w.inFd = int(os.Stdin.Fd())

	if term.IsTerminal(w.inFd) {
		oldState, err := term.MakeRaw(w.inFd)
		if err != nil {
			return nil, fmt.Errorf("failed to set raw mode: %w", err)
		}
		w.oldState = oldState
		w.startReader(os.Stdin)
	} else {
		log.Printf("[TERMINAL] stdin is not a terminal, keyboard input disabled")
	}

	// Hide cursor, clear screen
	fmt.Fprint(w.out, "\033[?25l\033[2J")
	w.SetTitle(title)

	return w, nil
}

func newTerminalWindow(title string, width, height int, out io.Writer, config Config) *TerminalWindow {
	return &TerminalWindow{
		FrameBuffer: NewFrameBuffer(width, height),
		title:       title,
		width:       width,
		height:      height,
		running:     true,
		out:         out,
		outFd:       -1,
		inFd:        -1,
		keys:        make(chan []byte, 64),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		keymap:      config.keymap(),
		control:     input.NewController(terminalKeyHold),
		events:      input.NewQueue(),
		cols:        80,
		rows:        24,
		debug:       config.Debug,
		frameSkip:   2,
	}
}

// startReader copies raw key bytes from r until it fails or the window
// is cleaned up
func (w *TerminalWindow) startReader(r io.Reader) {
	go func() {
		defer close(w.stopped)

		buf := make([]byte, 16)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				select {
				case w.keys <- data:
				case <-w.done:
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
}

// Cleanup releases all terminal resources
func (b *TerminalBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns false (terminal has basic output)
func (b *TerminalBackend) IsHeadless() bool {
	return false
}

// GetName returns the backend name
func (b *TerminalBackend) GetName() string {
	return "Terminal"
}

// TerminalWindow implementation

// SetTitle sets the terminal title
func (w *TerminalWindow) SetTitle(title string) {
	w.title = title
	fmt.Fprintf(w.out, "\033]0;%s\007", title)
}

// GetSize returns the canvas dimensions
func (w *TerminalWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *TerminalWindow) ShouldClose() bool {
	return !w.running
}

// Notify queues an event
func (w *TerminalWindow) Notify(event input.Event) {
	w.events.Notify(event)
}

// PollEvents decodes pending keyboard bytes and releases keys whose
// auto-repeat stopped
func (w *TerminalWindow) PollEvents() []input.Event {
	now := time.Now()

drain:
	for {
		select {
		case data := <-w.keys:
			w.handleKeys(data, now)
		default:
			break drain
		}
	}

	w.flushPending(now)

	for _, event := range w.control.Expire(now) {
		w.events.Notify(event)
	}

	return w.events.PollEvents()
}

func (w *TerminalWindow) handleKeys(data []byte, now time.Time) {
	if len(w.pending) > 0 {
		data = append(append([]byte(nil), w.pending...), data...)
		w.pending = nil
	}

	keys, quit, rest := decodeTerminalInput(data, false)
	if len(rest) > 0 {
		w.pending = rest
		w.pendingAt = now
	}
	w.dispatch(keys, quit, now)
}

// flushPending decodes a held escape prefix once nothing completed it
func (w *TerminalWindow) flushPending(now time.Time) {
	if len(w.pending) == 0 || now.Sub(w.pendingAt) < terminalEscapeWait {
		return
	}

	keys, quit, _ := decodeTerminalInput(w.pending, true)
	w.pending = nil
	w.dispatch(keys, quit, now)
}

func (w *TerminalWindow) dispatch(keys []Key, quit bool, now time.Time) {
	if quit {
		w.events.Notify(input.Quit())
		return
	}

	for _, hostKey := range keys {
		key, bound := w.keymap[hostKey]
		if !bound {
			continue
		}
		for _, event := range w.control.Press(key, now) {
			w.events.Notify(event)
		}
	}
}

// decodeTerminalInput maps raw terminal bytes to host keys. Escape alone,
// q and Ctrl-C request quit. Unless final is set, an escape sequence cut
// off at the end of data is returned as rest instead of being decoded.
func decodeTerminalInput(data []byte, final bool) (keys []Key, quit bool, rest []byte) {
	for i := 0; i < len(data); i++ {
		b := data[i]
		switch {
		case b == 0x1B && !final && (i+1 == len(data) || i+2 == len(data) && data[i+1] == '['):
			return keys, false, data[i:]
		case b == 0x1B && i+2 < len(data) && data[i+1] == '[':
			switch data[i+2] {
			case 'A':
				keys = append(keys, KeyUp)
			case 'B':
				keys = append(keys, KeyDown)
			case 'C':
				keys = append(keys, KeyRight)
			case 'D':
				keys = append(keys, KeyLeft)
			}
			i += 2
		case b == 0x1B, b == 0x03, b == 'q', b == 'Q':
			return keys, true, nil
		case b == ' ':
			keys = append(keys, KeySpace)
		case b == '\r' || b == '\n':
			keys = append(keys, KeyEnter)
		case b == '1':
			keys = append(keys, Key1)
		case b == '2':
			keys = append(keys, Key2)
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z':
			if key, err := ParseHostKey(string(b)); err == nil {
				keys = append(keys, key)
			}
		}
	}
	return keys, false, nil
}

// Present draws the frame buffer with one character cell per two vertical
// samples
func (w *TerminalWindow) Present() error {
	w.frame++
	if w.frameSkip > 1 && w.frame%w.frameSkip != 0 {
		return nil
	}

	if w.outFd >= 0 {
		if cols, rows, err := term.GetSize(w.outFd); err == nil && cols > 0 && rows > 1 {
			w.cols, w.rows = cols, rows-1
		}
	}

	out := bufio.NewWriter(w.out)
	fmt.Fprint(out, "\033[H")

	for row := 0; row < w.rows; row++ {
		for col := 0; col < w.cols; col++ {
			x := col * w.width / w.cols
			top := w.At(x, (2*row)*w.height/(2*w.rows))
			bottom := w.At(x, (2*row+1)*w.height/(2*w.rows))
			fmt.Fprintf(out, "\033[38;2;%d;%d;%dm\033[48;2;%d;%d;%dm▀",
				top.R, top.G, top.B, bottom.R, bottom.G, bottom.B)
		}
		fmt.Fprint(out, "\033[0m\r\n")
	}

	if err := out.Flush(); err != nil {
		return fmt.Errorf("terminal write failed: %w", err)
	}
	return nil
}

// Cleanup restores the terminal
func (w *TerminalWindow) Cleanup() error {
	w.running = false
	w.closeOnce.Do(func() { close(w.done) })
	fmt.Fprint(w.out, "\033[0m\033[?25h\r\n")

	if w.oldState != nil {
		if err := term.Restore(w.inFd, w.oldState); err != nil {
			return fmt.Errorf("failed to restore terminal: %w", err)
		}
		w.oldState = nil
	}
	return nil
}
