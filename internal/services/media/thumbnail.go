package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	mediatypes "github.com/princekumarofficial/impact-stories/internal/types/media"
)

// ErrFFmpegUnavailable is returned when no ffmpeg binary can be found
var ErrFFmpegUnavailable = errors.New("ffmpeg binary not available")

// FrameExtractor renders one JPEG frame of a video with ffmpeg
type FrameExtractor struct {
	bin       string
	atSeconds float64
	width     int
}

// NewFrameExtractor resolves the ffmpeg binary. An empty path looks up "ffmpeg" on PATH.
func NewFrameExtractor(ffmpegPath string, atSeconds float64) (*FrameExtractor, error) {
	bin := strings.TrimSpace(ffmpegPath)
	if bin == "" {
		bin = "ffmpeg"
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFFmpegUnavailable, err)
	}
	if atSeconds <= 0 {
		atSeconds = 1
	}
	return &FrameExtractor{bin: resolved, atSeconds: atSeconds, width: 640}, nil
}

// frameArgs builds the ffmpeg invocation that writes a single scaled frame of input to output
func frameArgs(input, output string, atSeconds float64, width int) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-ss", strconv.FormatFloat(atSeconds, 'f', -1, 64),
		"-i", input,
		"-frames:v", "1",
	}
	if width > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:-2", width))
	}
	return append(args, "-q:v", "3", output)
}

// ExtractFrame returns a JPEG thumbnail for the given video file
func (e *FrameExtractor) ExtractFrame(ctx context.Context, video mediatypes.File) (mediatypes.File, error) {
	dir, err := os.MkdirTemp("", "story-thumb-*")
	if err != nil {
		return mediatypes.File{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input"+extensionFor(video.Name, video.ContentType))
	if err := copyToFile(video, input); err != nil {
		return mediatypes.File{}, err
	}

	output := filepath.Join(dir, "frame.jpg")
	cmd := exec.CommandContext(ctx, e.bin, frameArgs(input, output, e.atSeconds, e.width)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return mediatypes.File{}, fmt.Errorf("ffmpeg frame extraction failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	data, err := os.ReadFile(output)
	if err != nil {
		return mediatypes.File{}, fmt.Errorf("read extracted frame: %w", err)
	}
	if len(data) == 0 {
		return mediatypes.File{}, errors.New("ffmpeg produced an empty frame")
	}

	name := strings.TrimSuffix(filepath.Base(video.Name), filepath.Ext(video.Name)) + "-thumb.jpg"
	return mediatypes.FromBytes(name, "image/jpeg", data), nil
}

func copyToFile(file mediatypes.File, dst string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open %q: %w", file.Name, err)
	}
	defer src.Close()

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return fmt.Errorf("copy %q: %w", file.Name, err)
	}
	return f.Close()
}
