package commands

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"openclaw-setup/internal/adapter/tui/theme"
	"openclaw-setup/internal/domain"
	"openclaw-setup/internal/usecase/provision"
)

// printer renders run progress, notices and device changes as plain lines
// for the non-interactive commands. It is safe for concurrent use since the
// device poller renders from its own goroutine.
type printer struct {
	mu  sync.Mutex
	out io.Writer

	// attached is false once the caller stops watching devices.
	attached bool
	// lastDevices suppresses repeats of an unchanged device panel.
	lastDevices string
	// closed drops output from timers that outlive the command.
	closed bool
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out, attached: true}
}

func (p *printer) line(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		fmt.Fprintln(p.out, s)
	}
}

// close discards all later output.
func (p *printer) close() {
	p.mu.Lock()
	p.closed = true
	p.attached = false
	p.mu.Unlock()
}

func noticeStyle(kind provision.NoticeKind) (string, func(...string) string) {
	switch kind {
	case provision.NoticeSuccess:
		return theme.SymbolSuccess, theme.TextSuccess.Render
	case provision.NoticeWarning:
		return theme.SymbolWarning, theme.TextWarning.Render
	case provision.NoticeError:
		return theme.SymbolError, theme.TextError.Render
	}
	return theme.SymbolInfo, theme.TextInfo.Render
}

// Notify implements provision.Presenter.
func (p *printer) Notify(kind provision.NoticeKind, msg string) {
	sym, render := noticeStyle(kind)
	p.line(render(sym) + " " + msg)
}

// ShowLog implements provision.Presenter.
func (p *printer) ShowLog(output string) {
	output = strings.TrimRight(output, "\n")
	if output == "" {
		return
	}
	p.line(theme.LogBox.Render(output))
}

// ShowRetry implements provision.Presenter. The CLI has no retry button;
// the user reruns the command.
func (p *printer) ShowRetry() {
	p.line(theme.TextMuted.Render("  Fix the problem above and run the command again."))
}

// ShowComplete implements provision.Presenter.
func (p *printer) ShowComplete(token string) {
	p.line(theme.TextSuccess.Render(theme.SymbolSuccess+" "+provision.MsgSetupComplete))
	if token != "" {
		p.line("  Gateway token: " + theme.Bold.Render(token))
	}
}

// ShowTailscale implements provision.Presenter.
func (p *printer) ShowTailscale(status domain.TailscaleStatus) {
	p.line("  Tailscale: " + status.Describe())
}

// StageChanged implements provision.ProgressSink.
func (p *printer) StageChanged(stage domain.Stage, status domain.StageStatus) {
	var mark string
	switch status {
	case domain.StatusActive:
		mark = theme.TextInfo.Render(theme.SymbolArrowR)
	case domain.StatusDone:
		mark = theme.TextSuccess.Render(theme.SymbolSuccess)
	case domain.StatusError:
		mark = theme.TextError.Render(theme.SymbolError)
	default:
		return
	}
	p.line(fmt.Sprintf("%s %s", mark, stage.Label()))
}

// detach stops device rendering; the poller exits on its next tick.
func (p *printer) detach() {
	p.mu.Lock()
	p.attached = false
	p.mu.Unlock()
}

// Attached implements pairing.View.
func (p *printer) Attached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attached
}

// devicePanel prints s unless it equals the previous device panel.
func (p *printer) devicePanel(key, s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || key == p.lastDevices {
		return
	}
	p.lastDevices = key
	fmt.Fprintln(p.out, s)
}

// RenderDevices implements pairing.View.
func (p *printer) RenderDevices(ids []string) {
	var b strings.Builder
	b.WriteString(theme.Bold.Render(fmt.Sprintf("Pending devices (%d):", len(ids))))
	for _, id := range ids {
		b.WriteString("\n  " + theme.SymbolBullet + " " + id)
	}
	p.devicePanel("devices:"+strings.Join(ids, ","), b.String())
}

// RenderOffline implements pairing.View.
func (p *printer) RenderOffline() {
	p.devicePanel("offline", theme.TextWarning.Render(theme.SymbolWarning)+" Gateway offline, retrying"+theme.SymbolEllipsis)
}

// RenderEmpty implements pairing.View.
func (p *printer) RenderEmpty(message string) {
	p.devicePanel("empty:"+message, theme.TextMuted.Render(message))
}

// RenderApproved implements pairing.View.
func (p *printer) RenderApproved(id string) {
	p.line(theme.TextSuccess.Render(theme.SymbolSuccess) + " Approved " + id)
}

// RenderRemoved implements pairing.View.
func (p *printer) RenderRemoved(string) {}

// RenderApproveFailed implements pairing.View.
func (p *printer) RenderApproveFailed(id string, err error) {
	p.line(theme.TextError.Render(theme.SymbolError) + " Approve " + id + " failed: " + err.Error())
}
