package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"keybridge/internal/delegation"
	"keybridge/internal/domain"
)

// terminalInteractor answers provider passphrase prompts. The -p value is
// offered once per interaction; retries and prompts without -p are read from
// in. An unreadable answer cancels the interaction.
type terminalInteractor struct {
	in     *bufio.Reader
	out    io.Writer
	preset string

	mu   sync.Mutex
	ctx  context.Context
	dc   *delegation.Context
	used map[string]bool
}

var _ domain.Interactor = (*terminalInteractor)(nil)

func newTerminalInteractor(in io.Reader, out io.Writer, preset string) *terminalInteractor {
	return &terminalInteractor{
		in:     bufio.NewReader(in),
		out:    out,
		preset: preset,
		used:   make(map[string]bool),
	}
}

func (t *terminalInteractor) attach(ctx context.Context, dc *delegation.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ctx = ctx
	t.dc = dc
}

// Launch runs the interaction off the delivery goroutine and forwards the
// provider's answer back to the delegation context.
func (t *terminalInteractor) Launch(f domain.FollowUp) {
	t.mu.Lock()
	ctx, dc := t.ctx, t.dc
	t.mu.Unlock()
	if dc == nil {
		return
	}
	go t.run(ctx, dc, f)
}

func (t *terminalInteractor) run(ctx context.Context, dc *delegation.Context, f domain.FollowUp) {
	resp := t.answer(f.Interaction)
	comp, err := dc.Interact(ctx, f, resp)
	for i := range resp.Passphrase {
		resp.Passphrase[i] = 0
	}
	if err != nil {
		var info *domain.ErrorInfo
		if !errors.As(err, &info) {
			info = domain.WrapError(domain.ConnectionFailed, err, "")
		}
		comp = &domain.Completion{Outcome: domain.OutcomeError, Kind: f.Kind, Err: info}
	}
	_ = dc.OnExternalResult(f.CorrelationID, f.Kind, comp)
}

func (t *terminalInteractor) answer(in domain.Interaction) domain.InteractionResponse {
	t.mu.Lock()
	if t.preset != "" && !t.used[in.ID] {
		t.used[in.ID] = true
		t.mu.Unlock()
		return domain.InteractionResponse{Passphrase: []byte(t.preset)}
	}
	t.mu.Unlock()

	fmt.Fprintf(t.out, "%s: ", in.Prompt)
	line, err := t.in.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err != nil && line == "" {
		fmt.Fprintln(t.out)
		return domain.InteractionResponse{Cancel: true}
	}
	return domain.InteractionResponse{Passphrase: []byte(line)}
}
