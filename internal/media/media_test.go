package media_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"testing"

	"go-landing-studio/internal/media"
)

func TestDataURIRoundTrip(t *testing.T) {
	data := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	uri := media.EncodeDataURI(data, "image/png")
	if !media.IsDataURI(uri) {
		t.Fatalf("not a data uri: %q", uri)
	}
	got, mime, err := media.DecodeDataURI(uri)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if mime != "image/png" || !bytes.Equal(got, data) {
		t.Fatalf("round trip: %q %v", mime, got)
	}
}

func TestDecodeDataURI_Rejects(t *testing.T) {
	for _, in := range []string{"https://x/y.png", "data:image/png,plain", "data:image/png;base64"} {
		if _, _, err := media.DecodeDataURI(in); !errors.Is(err, media.ErrNotDataURI) {
			t.Fatalf("%q: want ErrNotDataURI, got %v", in, err)
		}
	}
}

func TestDecodeDataURI_DefaultMime(t *testing.T) {
	_, mime, err := media.DecodeDataURI("data:;base64,AAEC")
	if err != nil || mime != "image/jpeg" {
		t.Fatalf("default mime: %q %v", mime, err)
	}
}

func source(name, body string, fail bool) media.Source {
	return media.Source{Name: name, Open: func() (io.ReadCloser, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return io.NopCloser(bytes.NewBufferString(body)), nil
	}}
}

func TestEncodeFiles_SkipsUnreadable(t *testing.T) {
	files := []media.Source{
		source("a", "aaa", false),
		source("b", "", false),
		source("c", "ccc", true),
		source("d", "ddd", false),
	}
	got := media.EncodeFiles(context.Background(), files)
	if len(got) != 2 {
		t.Fatalf("want 2 encoded files, got %d", len(got))
	}
	sort.Strings(got)
	want := []string{media.EncodeDataURI([]byte("aaa"), ""), media.EncodeDataURI([]byte("ddd"), "")}
	sort.Strings(want)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("encoded[%d]=%q want %q", i, got[i], want[i])
		}
	}
}
