package camera

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Frame is a single captured JPEG frame
type Frame struct {
	Data      []byte    // JPEG frame data
	Seq       uint64    // Frame sequence number
	Timestamp time.Time // Capture timestamp
	Width     int       // Reported width, 0 if unknown
	Height    int       // Reported height, 0 if unknown
}

// FrameSink receives frames from a source
type FrameSink func(frame *Frame)

// Source produces frames until stopped or exhausted
type Source interface {
	// Start begins producing frames into sink. An error means nothing was started.
	Start(sink FrameSink) error
	// Stop halts the source. Safe to call more than once.
	Stop()
	// Done is closed when the source has ended
	Done() <-chan struct{}
	// Err returns why the source ended, nil if it was stopped
	Err() error
}

// SourceConfig describes what to open
type SourceConfig struct {
	Device string
	Width  int
	Height int
	FPS    int
}

// NewSource picks a source implementation for the device string
func NewSource(cfg SourceConfig) Source {
	switch {
	case strings.HasPrefix(cfg.Device, "file://"):
		return NewStillFileSource(strings.TrimPrefix(cfg.Device, "file://"), cfg.FPS)
	case isHTTPImageEndpoint(cfg.Device):
		return NewSnapshotSource(cfg.Device, cfg.FPS)
	default:
		return NewFFmpegSource(cfg)
	}
}

// isNetworkSource checks if device is an HTTP/RTSP URL
func isNetworkSource(device string) bool {
	return strings.HasPrefix(device, "http://") ||
		strings.HasPrefix(device, "https://") ||
		strings.HasPrefix(device, "rtsp://")
}

func isHTTPImageEndpoint(device string) bool {
	return (strings.HasPrefix(device, "http://") || strings.HasPrefix(device, "https://")) &&
		(strings.Contains(device, ".jpg") || strings.Contains(device, ".jpeg") || strings.Contains(device, "image"))
}

// deviceAccessible checks that a local device or file can be opened for reading.
// Network sources are verified when capturing.
func deviceAccessible(device string) error {
	if isNetworkSource(device) {
		return nil
	}
	path := strings.TrimPrefix(device, "file://")

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("camera device %s does not exist: %w", device, err)
	}

	// Try to open for read to check permissions
	file, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("camera device %s is not accessible: %w", device, err)
	}
	file.Close()
	return nil
}

// baseSource holds lifecycle state shared by the source implementations
type baseSource struct {
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	doneOnce sync.Once
	errMu    sync.Mutex
	err      error
	frameSeq atomic.Uint64
}

func newBaseSource() baseSource {
	return baseSource{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (b *baseSource) Done() <-chan struct{} { return b.done }

func (b *baseSource) Err() error {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	return b.err
}

func (b *baseSource) finish(err error) {
	b.doneOnce.Do(func() {
		b.errMu.Lock()
		b.err = err
		b.errMu.Unlock()
		close(b.done)
	})
}

func (b *baseSource) stopped() bool {
	select {
	case <-b.stopCh:
		return true
	default:
		return false
	}
}

func (b *baseSource) emit(sink FrameSink, data []byte) {
	frame := &Frame{
		Data:      data,
		Seq:       b.frameSeq.Add(1),
		Timestamp: time.Now(),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		frame.Width = cfg.Width
		frame.Height = cfg.Height
	}
	sink(frame)
}

// FFmpegSource captures MJPEG frames from a V4L2 device or network stream
type FFmpegSource struct {
	baseSource
	cfg SourceConfig
	cmd *exec.Cmd
}

// NewFFmpegSource creates an ffmpeg-backed source
func NewFFmpegSource(cfg SourceConfig) *FFmpegSource {
	return &FFmpegSource{baseSource: newBaseSource(), cfg: cfg}
}

// Args returns the ffmpeg command line for the configured device
func (s *FFmpegSource) Args() []string {
	fps := s.cfg.FPS
	if fps <= 0 {
		fps = 15
	}

	if strings.HasPrefix(s.cfg.Device, "rtsp://") {
		return []string{
			"-rtsp_transport", "tcp",
			"-i", s.cfg.Device,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-r", fmt.Sprintf("%d", fps),
			"-q:v", "5",
			"-",
		}
	}
	if isNetworkSource(s.cfg.Device) {
		return []string{
			"-i", s.cfg.Device,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-r", fmt.Sprintf("%d", fps),
			"-q:v", "5",
			"-",
		}
	}

	// V4L2 device; the driver picks the closest supported size
	return []string{
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", s.cfg.Width, s.cfg.Height),
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", s.cfg.Device,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "5",
		"-",
	}
}

// Start launches ffmpeg and begins reading frames
func (s *FFmpegSource) Start(sink FrameSink) error {
	if err := deviceAccessible(s.cfg.Device); err != nil {
		return err
	}

	s.cmd = exec.Command("ffmpeg", s.Args()...)

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("error creating stdout pipe: %w", err)
	}
	stderr, err := s.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("error creating stderr pipe: %w", err)
	}

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("error starting ffmpeg: %w", err)
	}

	// Keep the last stderr lines for error reporting
	var tail tailBuffer
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			tail.add(scanner.Text())
		}
	}()

	go s.readLoop(stdout, sink, &tail)
	return nil
}

func (s *FFmpegSource) readLoop(stdout io.Reader, sink FrameSink, tail *tailBuffer) {
	frameBuffer := make([]byte, 0, 1024*1024)
	chunk := make([]byte, 8192)

	for {
		n, err := stdout.Read(chunk)
		if n > 0 {
			frameBuffer = append(frameBuffer, chunk[:n]...)

			// Extract complete JPEG frames
			for {
				frame := extractJPEGFrame(&frameBuffer)
				if frame == nil {
					break
				}
				if s.stopped() {
					break
				}
				s.emit(sink, frame)
			}
		}
		if err != nil {
			waitErr := s.cmd.Wait()
			if s.stopped() {
				s.finish(nil)
				return
			}
			if waitErr == nil && errors.Is(err, io.EOF) {
				s.finish(io.EOF)
				return
			}
			s.finish(fmt.Errorf("ffmpeg exited: %v (stderr: %s)", firstErr(waitErr, err), tail.String()))
			return
		}
	}
}

// Stop kills the ffmpeg process
func (s *FFmpegSource) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.cmd != nil && s.cmd.Process != nil {
			s.cmd.Process.Kill()
		}
	})
}

// SnapshotSource polls an HTTP endpoint serving single JPEG images
type SnapshotSource struct {
	baseSource
	url      string
	interval time.Duration
	client   *http.Client
}

// NewSnapshotSource creates a polling source
func NewSnapshotSource(url string, fps int) *SnapshotSource {
	interval := time.Second
	if fps > 0 {
		interval = time.Second / time.Duration(fps)
	}
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	return &SnapshotSource{
		baseSource: newBaseSource(),
		url:        url,
		interval:   interval,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Start fetches one frame synchronously, then keeps polling in the background
func (s *SnapshotSource) Start(sink FrameSink) error {
	frame, err := s.fetch()
	if err != nil {
		return err
	}
	s.emit(sink, frame)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopCh:
				s.finish(nil)
				return
			case <-ticker.C:
				frame, err := s.fetch()
				if err != nil {
					// transient; the next poll retries
					continue
				}
				if !s.stopped() {
					s.emit(sink, frame)
				}
			}
		}
	}()
	return nil
}

func (s *SnapshotSource) fetch() ([]byte, error) {
	resp, err := s.client.Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("error fetching frame from %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error fetching frame from %s: status %d", s.url, resp.StatusCode)
	}
	frame, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading frame: %w", err)
	}
	return frame, nil
}

// Stop halts polling
func (s *SnapshotSource) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// StillSource replays a single JPEG at a fixed rate. Used for file:// devices
// and for running without camera hardware.
type StillSource struct {
	baseSource
	path     string
	data     []byte
	interval time.Duration
}

// NewStillFileSource replays the JPEG file at path
func NewStillFileSource(path string, fps int) *StillSource {
	s := NewStillSource(nil, fps)
	s.path = path
	return s
}

// NewStillSource replays data
func NewStillSource(data []byte, fps int) *StillSource {
	interval := time.Second
	if fps > 0 {
		interval = time.Second / time.Duration(fps)
	}
	return &StillSource{baseSource: newBaseSource(), data: data, interval: interval}
}

// Start emits the first frame synchronously, then repeats it
func (s *StillSource) Start(sink FrameSink) error {
	if s.data == nil {
		data, err := os.ReadFile(s.path)
		if err != nil {
			return fmt.Errorf("error reading %s: %w", s.path, err)
		}
		s.data = data
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(s.data)); err != nil {
		return fmt.Errorf("still image is not decodable: %w", err)
	}
	s.emit(sink, s.data)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				s.finish(nil)
				return
			case <-ticker.C:
				s.emit(sink, s.data)
			}
		}
	}()
	return nil
}

// Stop halts replay
func (s *StillSource) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// extractJPEGFrame extracts a complete JPEG frame from buffer
func extractJPEGFrame(buffer *[]byte) []byte {
	if len(*buffer) < 4 {
		return nil
	}

	// Find JPEG start marker (FFD8)
	startIdx := bytes.Index(*buffer, []byte{0xFF, 0xD8})
	if startIdx == -1 {
		// keep a trailing 0xFF that may start the next marker
		if (*buffer)[len(*buffer)-1] == 0xFF {
			*buffer = (*buffer)[len(*buffer)-1:]
		} else {
			*buffer = (*buffer)[:0]
		}
		return nil
	}

	// Find JPEG end marker (FFD9)
	rel := bytes.Index((*buffer)[startIdx+2:], []byte{0xFF, 0xD9})
	if rel == -1 {
		return nil
	}
	endIdx := startIdx + 2 + rel + 2

	// Extract frame
	frame := make([]byte, endIdx-startIdx)
	copy(frame, (*buffer)[startIdx:endIdx])
	*buffer = (*buffer)[endIdx:]

	return frame
}

type tailBuffer struct {
	mu    sync.Mutex
	lines []string
}

func (t *tailBuffer) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > 5 {
		t.lines = t.lines[len(t.lines)-5:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, " | ")
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
