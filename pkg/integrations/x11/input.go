package x11

import (
	"context"
	"fmt"
	"time"

	"github.com/jezek/xgb/screensaver"
	"github.com/jezek/xgb/xproto"

	"forcefocus/internal/input"
)

const (
	clickMask  = xproto.KeyButMaskButton1 | xproto.KeyButMaskButton2 | xproto.KeyButMaskButton3
	scrollMask = xproto.KeyButMaskButton4 | xproto.KeyButMaskButton5
)

// InputPoller samples pointer state and the server idle counter and feeds
// the result to an input.Recorder.
//
// X offers no global key stream without grabs, so keyboard activity is
// inferred: fresh user input with no pointer motion or button change counts
// as a key press.
type InputPoller struct {
	interval time.Duration
	recorder input.Recorder

	lastX, lastY int16
	lastMask     uint16
	primed       bool
}

// NewInputPoller creates a poller sampling every interval
func NewInputPoller(recorder input.Recorder, interval time.Duration) *InputPoller {
	return &InputPoller{interval: interval, recorder: recorder}
}

// Run polls until ctx is cancelled
func (p *InputPoller) Run(ctx context.Context) error {
	c, err := newClient()
	if err != nil {
		return fmt.Errorf("failed to connect to X server: %w", err)
	}
	defer c.close()

	if err := screensaver.Init(c.conn); err != nil {
		return fmt.Errorf("MIT-SCREEN-SAVER extension unavailable: %w", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			pointer, err := xproto.QueryPointer(c.conn, c.root).Reply()
			if err != nil {
				continue
			}
			info, err := screensaver.QueryInfo(c.conn, xproto.Drawable(c.root)).Reply()
			if err != nil {
				continue
			}
			for _, kind := range p.classify(pointer.RootX, pointer.RootY, pointer.Mask, time.Duration(info.MsSinceUserInput)*time.Millisecond) {
				p.recorder.Record(kind, now)
			}
		}
	}
}

// classify turns one sample into the input kinds observed since the previous one
func (p *InputPoller) classify(x, y int16, mask uint16, sinceInput time.Duration) []input.Kind {
	if !p.primed {
		p.lastX, p.lastY, p.lastMask, p.primed = x, y, mask, true
		return nil
	}

	var kinds []input.Kind
	moved := x != p.lastX || y != p.lastY
	pressed := mask &^ p.lastMask
	released := p.lastMask &^ mask

	if moved {
		kinds = append(kinds, input.KindMouseMove)
	}
	if pressed&clickMask != 0 {
		kinds = append(kinds, input.KindClick)
	}
	if pressed&scrollMask != 0 {
		kinds = append(kinds, input.KindScroll)
	}
	if !moved && pressed == 0 && released == 0 && sinceInput < p.interval {
		kinds = append(kinds, input.KindKey)
	}

	p.lastX, p.lastY, p.lastMask = x, y, mask
	return kinds
}
