package web

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rymis/httpcam/pkg/frame"
)

func TestWriteStreamPart(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	f := frame.Frame{Data: []byte("abc"), Seq: 5}
	if err := writeStreamPart(w, f); err != nil {
		t.Fatalf("writeStreamPart() error = %v", err)
	}

	want := "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: 3\r\n\r\nabc\r\n"
	if buf.String() != want {
		t.Errorf("part = %q, want %q", buf.String(), want)
	}
}

func TestStreamDeliversFrames(t *testing.T) {
	cache := frame.NewCache()
	cache.Update([]byte{0xff, 0xd8, 0x10}, 64, 48)
	s := NewServer(Config{Addr: ":18092", Cache: cache})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get("http://localhost:18092/stream.mjpeg")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Fatalf("Content-Type = %q, want multipart/x-mixed-replace", ct)
	}

	mr := multipart.NewReader(resp.Body, streamBoundary)

	part, err := mr.NextPart()
	if err != nil {
		t.Fatalf("NextPart error: %v", err)
	}
	if pct := part.Header.Get("Content-Type"); pct != "image/jpeg" {
		t.Errorf("part Content-Type = %q, want image/jpeg", pct)
	}
	data, _ := io.ReadAll(part)
	if !bytes.Equal(data, []byte{0xff, 0xd8, 0x10}) {
		t.Errorf("first part = %v, want current frame", data)
	}

	cache.Update([]byte{0xff, 0xd8, 0x11}, 64, 48)

	part, err = mr.NextPart()
	if err != nil {
		t.Fatalf("NextPart error: %v", err)
	}
	data, _ = io.ReadAll(part)
	if !bytes.Equal(data, []byte{0xff, 0xd8, 0x11}) {
		t.Errorf("second part = %v, want updated frame", data)
	}
}
