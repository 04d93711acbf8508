// Package mjpeg writes Motion-JPEG AVI files. Frames are appended as
// JPEG chunks with AddFrame; Close writes the index and backfills the
// header length fields. All multi-byte fields are little-endian per the
// RIFF format.
package mjpeg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// ErrTooLarge is returned by AddFrame when the frame would push the file
// past the 32-bit AVI offset limit. The segment must be closed and a new
// one started.
var ErrTooLarge = errors.New("mjpeg: file too large")

// maxFileSize leaves headroom under 2^32 for the index and headers.
// Each frame costs an extra 16-byte index entry at finalization.
const maxFileSize = 4_200_000_000

const fourccDC = 0x63643030 // "00dc", a compressed video frame chunk

// Writer writes one MJPEG AVI file. Not safe for concurrent use.
type Writer struct {
	f   *os.File
	pos int64
	err error // sticky I/O error

	width  int
	height int
	fps    int

	idx          []byte  // idx1 entries, 16 bytes per frame
	lengthFields []int64 // pending length field positions (LIFO)
	framesPos    int64   // avih total frames field
	framesPos2   int64   // strh stream length field
	moviPos      int64
	frames       int
	closed       bool
}

// New creates the AVI file and writes its headers. Close must be called
// to produce a playable file.
func New(path string, width, height, fps int) (*Writer, error) {
	if width <= 0 || height <= 0 || fps <= 0 {
		return nil, fmt.Errorf("mjpeg: invalid video format %dx%d at %d fps", width, height, fps)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("mjpeg: create %s: %w", path, err)
	}

	w := &Writer{f: f, width: width, height: height, fps: fps}
	w.writeHeader()
	if w.err != nil {
		f.Close()
		return nil, fmt.Errorf("mjpeg: write header: %w", w.err)
	}
	return w, nil
}

// Frames returns the number of frames added so far.
func (w *Writer) Frames() int {
	return w.frames
}

// Size returns the current file size in bytes.
func (w *Writer) Size() int64 {
	return w.pos
}

// AddFrame appends one JPEG-encoded frame.
func (w *Writer) AddFrame(jpegData []byte) error {
	if w.closed {
		return errors.New("mjpeg: writer is closed")
	}
	if w.err != nil {
		return w.err
	}
	// AVI offsets are 32-bit; include the index entries still to be
	// written so Close cannot overflow either.
	if w.pos+int64(len(jpegData))+int64(w.frames)*16 > maxFileSize {
		return ErrTooLarge
	}

	framePos := w.pos
	w.writeString("00dc")
	w.writeLengthField()
	w.write(jpegData)
	w.finalizeLengthField()
	if w.err != nil {
		return fmt.Errorf("mjpeg: write frame: %w", w.err)
	}
	w.frames++

	w.idx = appendU32(w.idx, fourccDC)
	w.idx = appendU32(w.idx, 0x10) // AVIIF_KEYFRAME, every MJPEG frame stands alone
	w.idx = appendU32(w.idx, uint32(framePos-w.moviPos))
	w.idx = appendU32(w.idx, uint32(len(jpegData)))
	return nil
}

// Close writes the index chunk, backfills the frame counts and length
// fields and closes the file. Calling Close again is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true

	w.finalizeLengthField() // LIST movi
	w.writeString("idx1")
	w.writeU32(uint32(len(w.idx)))
	w.write(w.idx)
	w.writeU32At(uint32(w.frames), w.framesPos)
	w.writeU32At(uint32(w.frames), w.framesPos2)
	w.finalizeLengthField() // RIFF

	if w.err != nil {
		w.f.Close()
		return fmt.Errorf("mjpeg: finalize: %w", w.err)
	}
	if err := w.f.Close(); err != nil {
		w.err = err
		return fmt.Errorf("mjpeg: close: %w", err)
	}
	return nil
}

func (w *Writer) writeHeader() {
	w.writeString("RIFF") // RIFF type
	w.writeLengthField()  // file length, finalized by Close
	w.writeString("AVI ") // AVI signature
	w.writeString("LIST") // header list
	w.writeLengthField()  // hdrl length
	w.writeString("hdrl")
	w.writeString("avih")               // main AVI header
	w.writeU32(0x38)                    // avih length
	w.writeU32(uint32(1000000 / w.fps)) // frame delay in microseconds
	w.writeU32(0)                       // dwMaxBytesPerSec
	w.writeU32(0)                       // reserved
	w.writeU32(0x10)                    // dwFlags: AVIF_HASINDEX
	w.framesPos = w.pos
	w.writeU32(0) // total frames, backfilled by Close
	w.writeU32(0) // initial frames
	w.writeU32(1) // stream count: one video stream
	w.writeU32(0) // dwSuggestedBufferSize
	w.writeU32(uint32(w.width))
	w.writeU32(uint32(w.height))
	w.writeU32(0) // reserved
	w.writeU32(0)
	w.writeU32(0)
	w.writeU32(0)

	w.writeString("LIST") // stream list
	w.writeLengthField()  // strl length
	w.writeString("strl")
	w.writeString("strh")     // stream header
	w.writeU32(56)            // strh length
	w.writeString("vids")     // fccType: video
	w.writeString("MJPG")     // fccHandler
	w.writeU32(0)             // dwFlags
	w.writeU32(0)             // wPriority, wLanguage
	w.writeU32(0)             // dwInitialFrames
	w.writeU32(1)             // dwScale
	w.writeU32(uint32(w.fps)) // dwRate, fps = dwRate/dwScale
	w.writeU32(0)             // dwStart
	w.framesPos2 = w.pos
	w.writeU32(0)          // dwLength in frames, backfilled by Close
	w.writeU32(0)          // dwSuggestedBufferSize
	w.writeU32(0xFFFFFFFF) // dwQuality: driver default
	w.writeU32(0)          // dwSampleSize: one frame per chunk
	w.writeU16(0)          // rcFrame left
	w.writeU16(0)          // rcFrame top
	w.writeU16(0)          // rcFrame right
	w.writeU16(0)          // rcFrame bottom

	w.writeString("strf") // stream format
	w.writeLengthField()  // strf length
	w.writeU32(40)        // biSize
	w.writeU32(uint32(w.width))
	w.writeU32(uint32(w.height))
	w.writeU16(1)                              // biPlanes
	w.writeU16(24)                             // biBitCount
	w.writeString("MJPG")                      // biCompression
	w.writeU32(uint32(w.width * w.height * 3)) // biSizeImage, decompressed
	w.writeU32(0)                              // biXPelsPerMeter
	w.writeU32(0)                              // biYPelsPerMeter
	w.writeU32(0)                              // biClrUsed
	w.writeU32(0)                              // biClrImportant
	w.finalizeLengthField()                    // strf done

	// Stream name, zero terminated and even length.
	name := "Created with httpcam"
	if len(name)%2 == 0 {
		name += " \x00"
	} else {
		name += "\x00"
	}
	w.writeString("strn")
	w.writeU32(uint32(len(name)))
	w.writeString(name)
	w.finalizeLengthField() // strl done
	w.finalizeLengthField() // hdrl done

	w.writeString("LIST") // frame data list
	w.writeLengthField()  // movi length
	w.moviPos = w.pos
	w.writeString("movi")
}

func (w *Writer) write(data []byte) {
	if w.err != nil {
		return
	}
	n, err := w.f.Write(data)
	w.pos += int64(n)
	w.err = err
}

func (w *Writer) writeString(s string) {
	w.write([]byte(s))
}

func (w *Writer) writeU32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	w.write(buf[:])
}

func (w *Writer) writeU16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	w.write(buf[:])
}

// writeU32At backpatches a field without moving the append position.
func (w *Writer) writeU32At(v uint32, pos int64) {
	if w.err != nil {
		return
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, w.err = w.f.WriteAt(buf[:], pos)
}

// writeLengthField reserves a chunk length slot to be finalized later.
func (w *Writer) writeLengthField() {
	w.lengthFields = append(w.lengthFields, w.pos)
	w.writeU32(0)
}

// finalizeLengthField backpatches the most recent length slot with the
// bytes written since, then pads the chunk to an even boundary. The
// padding byte is not counted in the chunk length.
func (w *Writer) finalizeLengthField() {
	if w.err != nil {
		return
	}
	n := len(w.lengthFields)
	if n == 0 {
		w.err = errors.New("mjpeg: length field stack is empty")
		return
	}
	lenPos := w.lengthFields[n-1]
	w.lengthFields = w.lengthFields[:n-1]

	w.writeU32At(uint32(w.pos-lenPos-4), lenPos)
	if w.pos%2 == 1 {
		w.write([]byte{0})
	}
}

func appendU32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}
