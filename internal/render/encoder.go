package render

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/seisview/gmv/internal/logger"
)

// Encoder runs ffmpeg over a directory of numbered PNG frames to produce an
// H.264 MP4. ffmpeg is invoked as a subprocess; nothing is linked in.
type Encoder struct {
	ffmpegPath string
	fps        int
	quality    int
}

// NewEncoder builds an encoder. quality is the 1..5 knob from the config,
// mapped onto an ffmpeg CRF internally.
func NewEncoder(ffmpegPath string, fps, quality int) *Encoder {
	return &Encoder{ffmpegPath: ffmpegPath, fps: fps, quality: quality}
}

// Validate checks that the ffmpeg binary is present and runnable, so a
// missing encoder is reported before any frames are drawn.
func (e *Encoder) Validate(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, e.ffmpegPath, "-version").CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg not available at %q: %w (output: %s)", e.ffmpegPath, err, truncate(out, 200))
	}
	return nil
}

// Encode assembles frameDir/frame_%06d.png into outPath, overwriting any
// existing file.
func (e *Encoder) Encode(ctx context.Context, frameDir, outPath string) error {
	args := []string{
		"-framerate", strconv.Itoa(e.fps),
		"-i", frameDir + "/frame_%06d.png",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", strconv.Itoa(e.crf()),
		"-pix_fmt", "yuv420p",
		"-y",
		outPath,
	}

	logger.Debug("running ffmpeg: %s %v", e.ffmpegPath, args)
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg encode failed: %w (output: %s)", err, truncate(out, 500))
	}
	return nil
}

// crf maps quality 1 (smallest) .. 5 (best) onto CRF 28 .. 18.
func (e *Encoder) crf() int {
	q := e.quality
	if q < 1 {
		q = 1
	}
	if q > 5 {
		q = 5
	}
	crf := 28 - int(float64(q-1)*2.5)
	if crf < 18 {
		crf = 18
	}
	return crf
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}
