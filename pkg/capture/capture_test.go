/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: capture_test.go
Description: Tests for payload formats, file, HTTP and HTML sources, gRPC-web framing
and concurrent collection.
*/

package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kleascm/protodec/pkg/config"
	"github.com/kleascm/protodec/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = []byte{0x08, 0x96, 0x01, 0x12, 0x03, 'a', 'b', 'c'}

func quietLogger(t *testing.T) *logging.Logger {
	t.Helper()
	l, err := logging.NewLogger(nil, &bytes.Buffer{})
	require.NoError(t, err)
	return l
}

func TestDecodeFormats(t *testing.T) {
	got, err := Decode(FormatBinary, sample)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{sample}, got)

	got, err = Decode(FormatHex, []byte("0x08 96:01\n12 03 61 62 63\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{sample}, got)

	b64 := base64.StdEncoding.EncodeToString(sample)
	url := base64.RawURLEncoding.EncodeToString([]byte{0xfb, 0xff})
	got, err = Decode(FormatBase64, []byte("# captures\n"+b64+"\n\n"+url+"\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{sample, {0xfb, 0xff}}, got)

	got, err = Decode(FormatJSON, []byte(`["`+b64+`"]`))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{sample}, got)

	_, err = Decode("pcap", sample)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Decode(FormatBase64, []byte("!!!\n"))
	assert.Error(t, err)
}

func TestNewCaptureDigest(t *testing.T) {
	c := New("file", "x.bin", sample)
	assert.Len(t, c.Digest, 64)
	assert.Equal(t, Digest(sample), c.Digest)
	assert.Equal(t, len(sample), c.Size())
	assert.NotEqual(t, c.ID, New("file", "x.bin", sample).ID)
}

func TestFileSourceDirectoryDedup(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.bin"), sample, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.bin"), sample, 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "c.bin"), []byte{0x08, 0x01}, 0644))

	caps, err := NewFileSource(dir, FormatBinary, time.Second, 0).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, caps, 2)
	assert.Equal(t, filepath.Join(dir, "a.bin"), caps[0].Origin)
	assert.Equal(t, []byte{0x08, 0x01}, caps[1].Data)
}

func TestFileSourceSizeLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0644))

	_, err := NewFileSource(path, FormatBinary, time.Second, 10).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFileSourceHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/capture" {
			http.NotFound(w, r)
			return
		}
		w.Write(sample)
	}))
	defer srv.Close()

	caps, err := NewFileSource(srv.URL+"/capture", FormatBinary, time.Second, 0).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, caps, 1)
	assert.Equal(t, sample, caps[0].Data)

	_, err = NewFileSource(srv.URL+"/missing", FormatBinary, time.Second, 0).Fetch(context.Background())
	assert.Error(t, err)
}

func TestHTMLSourceExtract(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString(sample)
	other := base64.StdEncoding.EncodeToString([]byte{0x08, 0x01})
	page := `<html><body>
<div id="state" data-protobuf="` + b64 + `"></div>
<span data-pb="` + b64 + `"></span>
<script type="application/x-protobuf">` + other + `</script>
<script type="text/javascript">var x = 1;</script>
</body></html>`

	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(page), 0644))

	caps, err := NewHTMLSource(path, time.Second, 0).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, caps, 2)
	assert.Equal(t, sample, caps[0].Data)
	assert.Equal(t, []byte{0x08, 0x01}, caps[1].Data)
	assert.Equal(t, "html", caps[0].Source)
}

func frame(flag byte, payload []byte) []byte {
	hdr := make([]byte, frameHeaderLen)
	hdr[0] = flag
	binary.BigEndian.PutUint32(hdr[1:], uint32(len(payload)))
	return append(hdr, payload...)
}

func TestSplitFrames(t *testing.T) {
	body := append(frame(0, sample), frame(frameTrailerFlag, []byte("grpc-status:0\r\n"))...)
	frames, err := SplitFrames(body)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{sample}, frames)

	_, err = SplitFrames(body[:len(body)-1])
	assert.ErrorIs(t, err, ErrTruncatedFrame)

	_, err = SplitFrames([]byte{0, 0})
	assert.ErrorIs(t, err, ErrTruncatedFrame)
}

func TestUnframe(t *testing.T) {
	got, err := Unframe("application/x-protobuf", sample)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{sample}, got)

	text := base64.StdEncoding.EncodeToString(frame(0, sample))
	got, err = Unframe("application/grpc-web-text+proto", []byte(text))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{sample}, got)
}

func TestIsProtobufMIME(t *testing.T) {
	assert.True(t, IsProtobufMIME("application/x-protobuf"))
	assert.True(t, IsProtobufMIME("application/grpc-web+proto; charset=utf-8"))
	assert.False(t, IsProtobufMIME("application/json"))
	assert.False(t, IsProtobufMIME(""))
}

func TestParseGCSURI(t *testing.T) {
	bucket, prefix, err := ParseGCSURI("gs://traffic/2024/05/")
	require.NoError(t, err)
	assert.Equal(t, "traffic", bucket)
	assert.Equal(t, "2024/05/", prefix)

	_, _, err = ParseGCSURI("gs:///x")
	assert.Error(t, err)
	_, _, err = ParseGCSURI("s3://x")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestBuildSource(t *testing.T) {
	cfg := config.Default().Capture
	cases := map[string]string{
		"gs://bucket/prefix":          "gcs",
		"browser+https://example.com": "browser",
		"html+https://example.com":    "html",
		"html:page.html":              "html",
		"https://example.com/blob":    "file",
		"captures/":                   "file",
	}
	for uri, name := range cases {
		src, err := BuildSource(uri, cfg)
		require.NoError(t, err, uri)
		assert.Equal(t, name, src.Name(), uri)
	}

	_, err := BuildSource("ftp://example.com/x", cfg)
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
	_, err = BuildSource("browser+file:///x", cfg)
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	_, err = BuildSources(cfg)
	assert.Error(t, err)
}

type staticSource struct {
	name string
	caps []*Capture
	err  error
}

func (s *staticSource) Name() string        { return s.name }
func (s *staticSource) Description() string { return s.name }
func (s *staticSource) Fetch(context.Context) ([]*Capture, error) {
	return s.caps, s.err
}

func TestCollectOrderDedupAndErrors(t *testing.T) {
	a := New("a", "1", []byte{0x08, 0x01})
	b := New("b", "2", []byte{0x08, 0x02})
	dup := New("b", "3", []byte{0x08, 0x01})
	boom := errors.New("boom")

	caps, err := Collect(context.Background(), []Source{
		&staticSource{name: "first", caps: []*Capture{a}},
		&staticSource{name: "broken", err: boom},
		&staticSource{name: "second", caps: []*Capture{dup, b}},
	}, quietLogger(t))
	assert.ErrorIs(t, err, boom)
	require.Len(t, caps, 2)
	assert.Same(t, a, caps[0])
	assert.Same(t, b, caps[1])
}
