package viewer

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/neurlang/specgram/capture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testViewer(t *testing.T) *Viewer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 6, 4))
	img.SetRGBA(1, 2, color.RGBA{200, 10, 10, 255})
	v, err := New(img, capture.Info{
		Path:       "res/fm.sigmf",
		Format:     "sigmf",
		Datatype:   "ci16_le",
		SampleRate: 6e6,
		Samples:    12_000_000,
		Complex:    true,
		Frequency:  98.1e6,
	})
	require.NoError(t, err)
	return v
}

func TestImageRoute(t *testing.T) {
	srv := httptest.NewServer(testViewer(t).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/spectrogram.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 6, img.Bounds().Dx())
	r, _, _, _ := img.At(1, 2).RGBA()
	assert.Equal(t, uint32(200*0x101), r)
}

func TestPageRoute(t *testing.T) {
	srv := httptest.NewServer(testViewer(t).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `<img src="/spectrogram.png"`)
	assert.Contains(t, string(body), "res/fm.sigmf")
}

func TestCaptureRoute(t *testing.T) {
	srv := httptest.NewServer(testViewer(t).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/capture")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "ci16_le", got["datatype"])
	assert.Equal(t, 6e6, got["sample_rate"])
	assert.Equal(t, 2.0, got["duration"])
	assert.Equal(t, 6.0, got["width"])
	assert.Equal(t, 4.0, got["height"])
}

func TestDismissUnblocksServe(t *testing.T) {
	v := testViewer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- v.ServeListener(context.Background(), ln) }()

	url := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(url + "/api/capture")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Post(url+"/api/dismiss", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after dismiss")
	}

	// dismissing twice is harmless
	_, err = v.dismiss(context.Background(), &struct{}{})
	assert.NoError(t, err)
}

func TestContextCancelUnblocksServe(t *testing.T) {
	v := testViewer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- v.Serve(ctx, "127.0.0.1:0") }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	select {
	case <-v.Dismissed():
		t.Fatal("cancel must not count as dismiss")
	default:
	}
}

func TestServeBadAddress(t *testing.T) {
	err := testViewer(t).Serve(context.Background(), "256.0.0.1:http")
	assert.Error(t, err)
}
