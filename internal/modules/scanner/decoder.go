package scanner

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/georgemunganga/printa-terminal/internal/deferred"
	"github.com/georgemunganga/printa-terminal/internal/modules/catalog"
	"go.uber.org/zap"
)

// Options configure a Decoder. Zero values select DefaultWindow and the wall clock.
type Options struct {
	Window     time.Duration
	Clock      deferred.Clock
	OnMatch    func(catalog.Item)
	OnNotFound func(code string)
	Log        *zap.Logger
}

// Decoder turns bursts of keystrokes terminated by Enter into barcode lookups.
// Callbacks run without the decoder lock held.
type Decoder struct {
	resolver   Resolver
	onMatch    func(catalog.Item)
	onNotFound func(string)
	log        *zap.Logger

	mu     sync.Mutex
	buf    strings.Builder
	expiry *deferred.Deferred
	closed bool
}

func NewDecoder(resolver Resolver, opts Options) *Decoder {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	d := &Decoder{
		resolver:   resolver,
		onMatch:    opts.OnMatch,
		onNotFound: opts.OnNotFound,
		log:        opts.Log,
	}
	d.expiry = deferred.New(opts.Clock, opts.Window, d.expire)
	return d
}

// HandleKey feeds one key press through the decoder.
func (d *Decoder) HandleKey(ev KeyEvent) Action {
	if ev.Target == TargetTextField {
		return Action{}
	}
	printable := utf8.RuneCountInString(ev.Key) == 1 && !ev.Ctrl && !ev.Alt && !ev.Meta

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return Action{}
	}
	action := Action{BlurSearch: ev.Target == TargetSearch && printable}

	if ev.Key == keyEnter {
		code := strings.TrimSpace(d.buf.String())
		if code == "" {
			d.mu.Unlock()
			return action
		}
		d.buf.Reset()
		d.expiry.Cancel()
		d.mu.Unlock()

		d.resolve(code)
		action.Suppress = true
		return action
	}

	if printable {
		d.buf.WriteString(ev.Key)
		d.expiry.Arm()
		action.Suppress = true
	}
	d.mu.Unlock()
	return action
}

// Buffered returns the characters collected so far.
func (d *Decoder) Buffered() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf.String()
}

// Close cancels any pending expiry; later keys are ignored.
func (d *Decoder) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.buf.Reset()
	d.expiry.Cancel()
}

func (d *Decoder) expire() {
	d.mu.Lock()
	defer d.mu.Unlock()
	// a key that arrived after this firing was scheduled re-armed the window
	if d.expiry.Pending() {
		return
	}
	if d.buf.Len() > 0 {
		d.log.Debug("scan buffer expired", zap.Int("chars", d.buf.Len()))
	}
	d.buf.Reset()
}

func (d *Decoder) resolve(code string) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("scan handler panicked", zap.String("code", code), zap.Any("panic", r))
		}
	}()

	item, ok := d.resolver.FindByCode(code)
	if !ok {
		d.log.Info("barcode not found", zap.String("code", code))
		if d.onNotFound != nil {
			d.onNotFound(code)
		}
		return
	}
	d.log.Debug("barcode matched", zap.String("code", code), zap.String("item", item.ID))
	if d.onMatch != nil {
		d.onMatch(item)
	}
}
