package setup

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"openclaw-setup/internal/domain"
	"openclaw-setup/internal/usecase/pairing"
	"openclaw-setup/internal/usecase/provision"
	"openclaw-setup/internal/usecase/validate"
	"openclaw-setup/internal/usecase/wizard"
)

// maxNotices is how many notifications stay on screen.
const maxNotices = 4

// Notice is one user notification.
type Notice struct {
	Kind provision.NoticeKind
	Text string
}

// DeviceRow is one pending device in the approval list.
type DeviceRow struct {
	ID        string
	Approving bool
	Approved  bool
	Err       string
}

// Frame is everything the session has asked the screen to show.
type Frame struct {
	Steps     []wizard.StepView
	Review    []wizard.ReviewItem
	ScrollRev int

	Groups      []domain.ProviderGroup
	GroupsRev   int
	Selected    string
	AuthOptions []domain.AuthOption
	AuthRev     int
	AuthChoice  string
	Hint        wizard.AuthHint
	AuthResult  validate.Result

	Notices   []Notice
	Log       string
	Retry     bool
	Complete  bool
	Token     string
	Tailscale *domain.TailscaleStatus
	Stages    map[domain.Stage]domain.StageStatus

	Devices      []DeviceRow
	DevicesEmpty string
	Offline      bool
}

// FrameMsg tells the program the Frame changed.
type FrameMsg struct{}

// Bridge implements the session's view interfaces. Usecase components call
// it from their own goroutines; it records state under a mutex and pokes the
// program, whose Update pulls the latest Frame.
type Bridge struct {
	mu       sync.Mutex
	frame    Frame
	attached bool

	send    func(tea.Msg)
	pending atomic.Bool
}

// NewBridge creates a Bridge. Until SetSender is called changes are only
// recorded.
func NewBridge() *Bridge {
	return &Bridge{frame: Frame{Stages: make(map[domain.Stage]domain.StageStatus)}}
}

// SetSender sets the function used to wake the program, normally
// (*tea.Program).Send.
func (b *Bridge) SetSender(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	b.mu.Unlock()
}

// Frame returns a copy of the current frame and re-arms change notification.
func (b *Bridge) Frame() Frame {
	b.pending.Store(false)
	b.mu.Lock()
	defer b.mu.Unlock()
	f := b.frame
	f.Steps = slices.Clone(f.Steps)
	f.Review = slices.Clone(f.Review)
	f.Notices = slices.Clone(f.Notices)
	f.Devices = slices.Clone(f.Devices)
	f.Stages = maps.Clone(f.Stages)
	return f
}

// update applies fn to the frame and wakes the program. Sends happen on a
// fresh goroutine because view calls also arrive from inside Update, where
// a blocking Send would deadlock the event loop.
func (b *Bridge) update(fn func(f *Frame)) {
	b.mu.Lock()
	fn(&b.frame)
	send := b.send
	b.mu.Unlock()

	if send == nil || !b.pending.CompareAndSwap(false, true) {
		return
	}
	go send(FrameMsg{})
}

// --- wizard.NavigatorView ---

func (b *Bridge) RenderSteps(steps []wizard.StepView) {
	b.update(func(f *Frame) { f.Steps = steps })
}

func (b *Bridge) RenderReview(items []wizard.ReviewItem) {
	b.update(func(f *Frame) { f.Review = items })
}

func (b *Bridge) ScrollTop() {
	b.update(func(f *Frame) { f.ScrollRev++ })
}

// --- wizard.SelectorView ---

func (b *Bridge) RenderProviders(groups []domain.ProviderGroup, selected string) {
	b.update(func(f *Frame) {
		f.Groups = groups
		f.Selected = selected
		f.GroupsRev++
	})
}

func (b *Bridge) RenderAuthOptions(options []domain.AuthOption, selected string) {
	b.update(func(f *Frame) {
		f.AuthOptions = options
		f.AuthChoice = selected
		f.AuthRev++
	})
}

func (b *Bridge) RenderAuthHint(hint wizard.AuthHint) {
	b.update(func(f *Frame) { f.Hint = hint })
}

func (b *Bridge) RenderAuthValidation(r validate.Result) {
	b.update(func(f *Frame) { f.AuthResult = r })
}

// --- provision.Presenter ---

func (b *Bridge) Notify(kind provision.NoticeKind, msg string) {
	b.update(func(f *Frame) {
		f.Notices = append(f.Notices, Notice{Kind: kind, Text: msg})
		if len(f.Notices) > maxNotices {
			f.Notices = f.Notices[len(f.Notices)-maxNotices:]
		}
	})
}

func (b *Bridge) ShowLog(output string) {
	b.update(func(f *Frame) { f.Log = output })
}

func (b *Bridge) ShowRetry() {
	b.update(func(f *Frame) { f.Retry = true })
}

func (b *Bridge) ShowComplete(gatewayToken string) {
	b.update(func(f *Frame) {
		f.Complete = true
		f.Retry = false
		f.Token = gatewayToken
	})
}

func (b *Bridge) ShowTailscale(status domain.TailscaleStatus) {
	b.update(func(f *Frame) { f.Tailscale = &status })
}

// --- provision.ProgressSink ---

func (b *Bridge) StageChanged(stage domain.Stage, status domain.StageStatus) {
	b.update(func(f *Frame) { f.Stages[stage] = status })
}

// BeginRun clears the previous run's outcome before a new attempt.
func (b *Bridge) BeginRun() {
	b.update(func(f *Frame) {
		f.Log = ""
		f.Retry = false
		f.Complete = false
		f.Token = ""
		f.Tailscale = nil
		f.Stages = make(map[domain.Stage]domain.StageStatus)
	})
}

// --- pairing.View ---

// SetAttached shows or hides the device list. The poller stops at its next
// tick once the list is detached.
func (b *Bridge) SetAttached(on bool) {
	b.mu.Lock()
	b.attached = on
	b.mu.Unlock()
}

func (b *Bridge) Attached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attached
}

func (b *Bridge) RenderDevices(ids []string) {
	b.update(func(f *Frame) {
		prev := make(map[string]DeviceRow, len(f.Devices))
		for _, r := range f.Devices {
			prev[r.ID] = r
		}
		rows := make([]DeviceRow, 0, len(ids))
		for _, id := range ids {
			if r, ok := prev[id]; ok {
				rows = append(rows, r)
				continue
			}
			rows = append(rows, DeviceRow{ID: id})
		}
		f.Devices = rows
		f.DevicesEmpty = ""
		f.Offline = false
	})
}

func (b *Bridge) RenderOffline() {
	b.update(func(f *Frame) { f.Offline = true })
}

func (b *Bridge) RenderEmpty(message string) {
	b.update(func(f *Frame) {
		f.Devices = nil
		f.DevicesEmpty = message
		f.Offline = false
	})
}

func (b *Bridge) RenderApproved(id string) {
	b.updateRow(id, func(r *DeviceRow) {
		r.Approving = false
		r.Approved = true
		r.Err = ""
	})
}

func (b *Bridge) RenderRemoved(id string) {
	b.update(func(f *Frame) {
		f.Devices = slices.DeleteFunc(f.Devices, func(r DeviceRow) bool { return r.ID == id })
	})
}

func (b *Bridge) RenderApproveFailed(id string, err error) {
	b.updateRow(id, func(r *DeviceRow) {
		r.Approving = false
		r.Err = err.Error()
	})
}

// MarkApproving disables the row's approve action while the request is in
// flight.
func (b *Bridge) MarkApproving(id string) {
	b.updateRow(id, func(r *DeviceRow) {
		r.Approving = true
		r.Err = ""
	})
}

func (b *Bridge) updateRow(id string, fn func(r *DeviceRow)) {
	b.update(func(f *Frame) {
		for i := range f.Devices {
			if f.Devices[i].ID == id {
				fn(&f.Devices[i])
			}
		}
	})
}

var (
	_ wizard.NavigatorView   = (*Bridge)(nil)
	_ wizard.SelectorView    = (*Bridge)(nil)
	_ provision.Presenter    = (*Bridge)(nil)
	_ provision.ProgressSink = (*Bridge)(nil)
	_ pairing.View           = (*Bridge)(nil)
)
