package midi

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go-addition/debug"
	"go-addition/instrument"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

var ledSendCount uint64

// Launchpad X layout for the 16x8 grid:
//
//	top CC row (91-98)       voice keys, grid x 0-7 on row 0
//	scene column (89..19)    gate keys, grid x 8-15 on row 0, top to bottom
//	pad rows 7..1            play-area rows 1-7, one half of the columns
//	pad row 0, pads 0 and 1  page select: left (x 0-7) or right (x 8-15) half
const (
	lpTopRow   = 8
	lpSceneCol = 8
	lpPageRow  = 0
	lpCols     = 8
)

// LaunchpadGrid drives a Novation Launchpad X as the instrument grid
type LaunchpadGrid struct {
	id       string
	outPort  drivers.Out
	inPort   drivers.In
	send     func(msg gomidi.Message) error
	stopFunc func()

	keyChan chan KeyEvent

	mu    sync.Mutex
	page  int
	frame [instrument.GridHeight][instrument.GridWidth][3]uint8
}

// NewLaunchpadGrid creates and configures a Launchpad
func NewLaunchpadGrid(id string, inPort drivers.In, outPort drivers.Out) (*LaunchpadGrid, error) {
	lp := &LaunchpadGrid{
		id:      id,
		inPort:  inPort,
		outPort: outPort,
		keyChan: make(chan KeyEvent, 32),
	}

	// Open output
	if outPort != nil {
		send, err := gomidi.SendTo(outPort)
		if err != nil {
			return nil, fmt.Errorf("open output: %w", err)
		}
		lp.send = send

		// Send SysEx to switch to Programmer mode
		// F0 00 20 29 02 0C 00 7F F7
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x00, 0x7F}))

		// Set brightness to maximum (0-127)
		// F0 00 20 29 02 0C 08 <brightness> F7
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x08, 0x7F}))

		// Enable external LED feedback
		// F0 00 20 29 02 0C 0A 01 01 F7
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x0A, 0x01, 0x01}))

		lp.paintPageKeys()
	}

	// Open input
	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
			var channel, note, velocity uint8
			var cc, value uint8

			switch {
			case msg.GetNoteOn(&channel, &note, &velocity):
				row, col := noteToRowCol(note)
				lp.handlePad(row, col, velocity > 0)
			case msg.GetNoteOff(&channel, &note, &velocity):
				row, col := noteToRowCol(note)
				lp.handlePad(row, col, false)
			case msg.GetControlChange(&channel, &cc, &value):
				row, col := ccToRowCol(cc)
				lp.handlePad(row, col, value > 0)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		lp.stopFunc = stop
	}

	return lp, nil
}

func (lp *LaunchpadGrid) ID() string {
	return lp.id
}

func (lp *LaunchpadGrid) Type() ControllerType {
	return ControllerLaunchpad
}

func (lp *LaunchpadGrid) KeyEvents() <-chan KeyEvent {
	return lp.keyChan
}

// Page returns which half of the play area is shown (0 left, 1 right)
func (lp *LaunchpadGrid) Page() int {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return lp.page
}

func (lp *LaunchpadGrid) handlePad(row, col int, pressed bool) {
	if row < 0 {
		return
	}
	if row == lpPageRow {
		if pressed && col < 2 {
			lp.setPage(col)
		}
		return
	}

	lp.mu.Lock()
	x, y, ok := rowColToGrid(row, col, lp.page)
	lp.mu.Unlock()
	if !ok {
		return
	}

	level := 0
	if pressed {
		level = 1
	}
	select {
	case lp.keyChan <- KeyEvent{X: x, Y: y, Level: level}:
	default:
	}
}

// setPage switches the visible half of the play area and repaints it
func (lp *LaunchpadGrid) setPage(page int) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.page == page {
		return
	}
	lp.page = page
	debug.Log("midi", "launchpad page %d", page)

	if lp.send == nil {
		return
	}
	for y := 1; y < instrument.GridHeight; y++ {
		for c := 0; c < lpCols; c++ {
			x := page*lpCols + c
			row, col, _ := gridToRowCol(x, y, page)
			lp.send(gomidi.NoteOn(0, rowColToNote(row, col), mapRGBToLaunchpad(lp.frame[y][x])))
		}
	}
	lp.paintPageKeysLocked()
}

func (lp *LaunchpadGrid) paintPageKeys() {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.paintPageKeysLocked()
}

func (lp *LaunchpadGrid) paintPageKeysLocked() {
	if lp.send == nil {
		return
	}
	for p := 0; p < 2; p++ {
		color := ColorDimBlue
		if p == lp.page {
			color = ColorBrightBlue
		}
		lp.send(gomidi.NoteOn(0, rowColToNote(lpPageRow, p), color))
	}
}

// SetLEDBatch records the updates and sends those on the visible page
// (SysEx batching had color issues - individual NoteOn messages are simpler
// and the caller already diffs)
func (lp *LaunchpadGrid) SetLEDBatch(updates []LEDUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	lp.mu.Lock()
	defer lp.mu.Unlock()

	sent := 0
	for _, u := range updates {
		if u.X < 0 || u.X >= instrument.GridWidth || u.Y < 0 || u.Y >= instrument.GridHeight {
			continue
		}
		lp.frame[u.Y][u.X] = u.Color
		row, col, ok := gridToRowCol(u.X, u.Y, lp.page)
		if !ok || lp.send == nil {
			continue
		}
		if err := lp.send(gomidi.NoteOn(0, rowColToNote(row, col), mapRGBToLaunchpad(u.Color))); err != nil {
			return fmt.Errorf("send led: %w", err)
		}
		sent++
	}

	atomic.AddUint64(&ledSendCount, uint64(sent))
	debug.LogEvery(100, "led", "launchpad batch=%d", sent)
	return nil
}

// mapRGBToLaunchpad finds the nearest Launchpad X palette color for an RGB value
func mapRGBToLaunchpad(rgb [3]uint8) uint8 {
	// Launchpad X palette - approximate RGB values for key colors
	// Format: {velocity, R, G, B}
	palette := [][4]uint8{
		{0, 0, 0, 0},         // off
		{5, 255, 0, 0},       // red
		{7, 180, 60, 60},     // dim red
		{9, 255, 100, 0},     // orange
		{11, 180, 80, 40},    // dim orange
		{13, 255, 200, 0},    // yellow
		{17, 0, 180, 0},      // green
		{19, 0, 100, 0},      // dim green
		{21, 0, 255, 0},      // bright green
		{37, 0, 200, 200},    // cyan
		{43, 40, 60, 120},    // dim blue
		{45, 0, 100, 255},    // blue
		{49, 150, 0, 200},    // purple
		{53, 255, 80, 180},   // pink
		{78, 100, 100, 255},  // light blue
		{97, 180, 180, 60},   // dim yellow
		{119, 255, 255, 255}, // white
	}

	bestMatch := uint8(0)
	bestDist := 999999

	r, g, b := int(rgb[0]), int(rgb[1]), int(rgb[2])

	for _, p := range palette {
		pr, pg, pb := int(p[1]), int(p[2]), int(p[3])
		dist := (r-pr)*(r-pr) + (g-pg)*(g-pg) + (b-pb)*(b-pb)
		if dist < bestDist {
			bestDist = dist
			bestMatch = p[0]
		}
	}

	return bestMatch
}

func (lp *LaunchpadGrid) Close() error {
	// Clear all LEDs on close
	if lp.send != nil {
		lp.mu.Lock()
		for row := 0; row < 9; row++ {
			for col := 0; col < 9; col++ {
				if row == 8 && col == 8 {
					continue // no LED at 8,8
				}
				lp.send(gomidi.NoteOn(0, rowColToNote(row, col), ColorOff))
			}
		}
		lp.mu.Unlock()
	}
	if lp.stopFunc != nil {
		lp.stopFunc()
	}
	close(lp.keyChan)
	return nil
}

// gridToRowCol maps a grid key to a Launchpad pad. ok is false for play-area
// keys on the hidden page.
func gridToRowCol(x, y, page int) (row, col int, ok bool) {
	if y == 0 {
		if x < instrument.MaxVoices {
			return lpTopRow, x, true
		}
		return 7 - (x - instrument.MaxVoices), lpSceneCol, true
	}
	if x/lpCols != page {
		return 0, 0, false
	}
	return instrument.GridHeight - y, x % lpCols, true
}

// rowColToGrid is the inverse of gridToRowCol. ok is false for the page row.
func rowColToGrid(row, col, page int) (x, y int, ok bool) {
	switch {
	case row == lpTopRow && col < lpCols:
		return col, 0, true
	case col == lpSceneCol && row < lpTopRow:
		return instrument.MaxVoices + 7 - row, 0, true
	case row > lpPageRow && row < lpTopRow && col < lpCols:
		return page*lpCols + col, instrument.GridHeight - row, true
	}
	return 0, 0, false
}

// Launchpad X note mapping
// 8x8 Grid:  Row 0 (bottom) = notes 11-18, Row 7 = notes 81-88
// Side col:  Col 8 (right side scene buttons) = notes 19, 29, 39, 49, 59, 69, 79, 89
// Top row:   Row 8 (top control row) = CC 91-98 (handled via CC messages)

func rowColToNote(row, col int) uint8 {
	// Top row uses CC, but for LED control we use notes 91-98
	if row == 8 {
		return uint8(91 + col)
	}
	return uint8((row+1)*10 + col + 1)
}

func noteToRowCol(note uint8) (row, col int) {
	// Top row notes (91-98)
	if note >= 91 && note <= 98 {
		return 8, int(note - 91)
	}
	row = int(note/10) - 1
	col = int(note%10) - 1
	// Accept 8x8 grid (rows 0-7, cols 0-7) plus side column (col 8)
	if row < 0 || row > 7 || col < 0 || col > 8 {
		return -1, -1
	}
	return row, col
}

// ccToRowCol converts CC messages to row/col: top row buttons are 91-98,
// scene buttons down the right column are 89, 79 ... 19
func ccToRowCol(cc uint8) (row, col int) {
	if cc >= 91 && cc <= 98 {
		return 8, int(cc - 91)
	}
	if cc >= 19 && cc <= 89 && cc%10 == 9 {
		return int(cc/10) - 1, 8
	}
	return -1, -1
}

// Launchpad X color palette (velocity values 0-127)
const (
	ColorOff        uint8 = 0
	ColorDimBlue    uint8 = 43
	ColorBrightBlue uint8 = 78
)
