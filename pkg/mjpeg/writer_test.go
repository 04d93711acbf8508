package mjpeg

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func u32(data []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(data[off : off+4])
}

func TestNewInvalidFormat(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		fps           int
	}{
		{name: "zero width", width: 0, height: 480, fps: 4},
		{name: "zero height", width: 640, height: 0, fps: 4},
		{name: "zero fps", width: 640, height: 480, fps: 0},
		{name: "negative fps", width: 640, height: 480, fps: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.avi")
			if _, err := New(path, tt.width, tt.height, tt.fps); err == nil {
				t.Errorf("New(%d, %d, %d) expected error", tt.width, tt.height, tt.fps)
			}
		})
	}
}

func TestWriterFileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.avi")
	w, err := New(path, 640, 480, 4)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	frameA := []byte("frameAAA")  // 8 bytes, even
	frameB := []byte("frameBBBB") // 9 bytes, odd, needs a padding byte
	if err := w.AddFrame(frameA); err != nil {
		t.Fatalf("AddFrame(A) error = %v", err)
	}
	if err := w.AddFrame(frameB); err != nil {
		t.Fatalf("AddFrame(B) error = %v", err)
	}
	if got := w.Frames(); got != 2 {
		t.Errorf("Frames() = %d, want 2", got)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	if len(data)%2 != 0 {
		t.Errorf("file size = %d, want even", len(data))
	}

	// RIFF container.
	if string(data[0:4]) != "RIFF" {
		t.Fatalf("magic = %q, want RIFF", data[0:4])
	}
	if got := u32(data, 4); got != uint32(len(data)-8) {
		t.Errorf("RIFF length = %d, want %d", got, len(data)-8)
	}
	if string(data[8:12]) != "AVI " {
		t.Errorf("signature = %q, want \"AVI \"", data[8:12])
	}

	// Main header.
	if string(data[24:28]) != "avih" {
		t.Fatalf("chunk at 24 = %q, want avih", data[24:28])
	}
	if got := u32(data, 32); got != 250000 {
		t.Errorf("frame delay = %d, want 250000 microseconds at 4 fps", got)
	}
	if got := u32(data, 44); got != 0x10 {
		t.Errorf("avih flags = %#x, want AVIF_HASINDEX", got)
	}
	if got := u32(data, 48); got != 2 {
		t.Errorf("avih total frames = %d, want 2", got)
	}
	if got := u32(data, 64); got != 640 {
		t.Errorf("avih width = %d, want 640", got)
	}
	if got := u32(data, 68); got != 480 {
		t.Errorf("avih height = %d, want 480", got)
	}

	// Stream header.
	if string(data[108:112]) != "vids" || string(data[112:116]) != "MJPG" {
		t.Errorf("stream type = %q %q, want vids MJPG", data[108:112], data[112:116])
	}
	if got := u32(data, 128); got != 1 {
		t.Errorf("dwScale = %d, want 1", got)
	}
	if got := u32(data, 132); got != 4 {
		t.Errorf("dwRate = %d, want 4", got)
	}
	if got := u32(data, 140); got != 2 {
		t.Errorf("strh stream length = %d, want 2 frames", got)
	}

	// Frame data list.
	if string(data[250:254]) != "movi" {
		t.Fatalf("chunk at 250 = %q, want movi", data[250:254])
	}
	if string(data[254:258]) != "00dc" {
		t.Fatalf("chunk at 254 = %q, want 00dc", data[254:258])
	}
	if got := u32(data, 258); got != uint32(len(frameA)) {
		t.Errorf("frame A length = %d, want %d", got, len(frameA))
	}
	if string(data[262:270]) != string(frameA) {
		t.Errorf("frame A data = %q, want %q", data[262:270], frameA)
	}

	// Second frame directly after the even-sized first chunk.
	if string(data[270:274]) != "00dc" {
		t.Fatalf("chunk at 270 = %q, want 00dc", data[270:274])
	}
	if got := u32(data, 274); got != uint32(len(frameB)) {
		t.Errorf("frame B length = %d, want %d", got, len(frameB))
	}

	// Odd frame B is padded, so idx1 starts on an even offset.
	idxPos := 278 + len(frameB) + 1
	if string(data[idxPos:idxPos+4]) != "idx1" {
		t.Fatalf("chunk at %d = %q, want idx1", idxPos, data[idxPos:idxPos+4])
	}
	if got := u32(data, idxPos+4); got != 32 {
		t.Errorf("idx1 length = %d, want 32 for two entries", got)
	}

	// First index entry: fourcc, keyframe flag, offset relative to movi,
	// unpadded chunk length.
	entry := idxPos + 8
	if string(data[entry:entry+4]) != "00dc" {
		t.Errorf("index fourcc = %q, want 00dc", data[entry:entry+4])
	}
	if got := u32(data, entry+4); got != 0x10 {
		t.Errorf("index flags = %#x, want AVIIF_KEYFRAME", got)
	}
	if got := u32(data, entry+8); got != 4 {
		t.Errorf("index offset = %d, want 4", got)
	}
	if got := u32(data, entry+12); got != uint32(len(frameA)) {
		t.Errorf("index length = %d, want %d", got, len(frameA))
	}

	// Second entry offset: first chunk took 8 header + 8 data bytes.
	if got := u32(data, entry+16+8); got != 20 {
		t.Errorf("second index offset = %d, want 20", got)
	}
}

func TestWriterEmptyVideo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.avi")
	w, err := New(path, 320, 240, 1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got := u32(data, 48); got != 0 {
		t.Errorf("total frames = %d, want 0", got)
	}
	if got := u32(data, 4); got != uint32(len(data)-8) {
		t.Errorf("RIFF length = %d, want %d", got, len(data)-8)
	}
}

func TestAddFrameAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.avi")
	w, err := New(path, 320, 240, 1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := w.AddFrame([]byte("late")); err == nil {
		t.Error("AddFrame() after Close expected error")
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
}

func TestWriterSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.avi")
	w, err := New(path, 320, 240, 1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	header := w.Size()
	if header == 0 {
		t.Fatal("Size() = 0 after header write")
	}
	if err := w.AddFrame(make([]byte, 100)); err != nil {
		t.Fatalf("AddFrame() error = %v", err)
	}
	if got := w.Size(); got != header+108 {
		t.Errorf("Size() = %d, want %d", got, header+108)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if fi.Size()%2 != 0 {
		t.Errorf("file size = %d, want even", fi.Size())
	}
}
