package voice

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/orbitarium/missionguide/pkg/logger"
)

// ErrNoPlayer means no usable audio playback binary was found on PATH.
var ErrNoPlayer = errors.New("no audio player available")

// Player blocks until playback of an audio file finishes or the context is
// cancelled. The orchestrator's transition gating rides on this completion.
type Player interface {
	Play(ctx context.Context, path string) error
}

// playerCandidates lists known playback binaries and the flags that make
// them run headless and exit when the file ends.
var playerCandidates = [][]string{
	{"mpv", "--no-video", "--really-quiet"},
	{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
	{"afplay"},
	{"aplay", "-q"},
}

// ExecPlayer plays audio files by spawning a local playback process.
type ExecPlayer struct {
	binary string
	args   []string
}

// NewExecPlayer probes PATH for a playback binary. The override, when
// non-empty, names a binary to use instead of probing.
func NewExecPlayer(override string) (*ExecPlayer, error) {
	if override != "" {
		path, err := exec.LookPath(override)
		if err != nil {
			return nil, fmt.Errorf("configured player %q not found: %w", override, err)
		}
		return &ExecPlayer{binary: path}, nil
	}

	for _, candidate := range playerCandidates {
		if path, err := exec.LookPath(candidate[0]); err == nil {
			logger.InfoCF("voice", "Audio player selected", map[string]any{
				"player": candidate[0],
			})
			return &ExecPlayer{binary: path, args: candidate[1:]}, nil
		}
	}
	return nil, ErrNoPlayer
}

// Play runs the playback process and blocks until it exits. Cancelling the
// context kills the process.
func (p *ExecPlayer) Play(ctx context.Context, path string) error {
	args := append(append([]string{}, p.args...), path)
	cmd := exec.CommandContext(ctx, p.binary, args...)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("audio playback failed: %w", err)
	}
	return nil
}
