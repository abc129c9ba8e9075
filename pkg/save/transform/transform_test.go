package transform_test

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/calvinalkan/savekit/pkg/save/transform"
)

func TestApply_Is_Its_Own_Inverse(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	keys := []string{"k", "encryption_key", "ünïcödé", string(make([]byte, 300)) + "x"}

	for _, key := range keys {
		for _, size := range []int{0, 1, 13, 255, 4096} {
			data := make([]byte, size)
			for i := range data {
				data[i] = byte(rng.IntN(256))
			}

			once, err := transform.Apply(data, key)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}

			if len(once) != len(data) {
				t.Fatalf("len=%d, want %d", len(once), len(data))
			}

			twice, err := transform.Apply(once, key)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}

			if !bytes.Equal(twice, data) {
				t.Fatalf("key %q size %d: round trip mismatch", key, size)
			}
		}
	}
}

func TestApply_Cycles_Key(t *testing.T) {
	t.Parallel()

	got, err := transform.Apply([]byte{0, 0, 0, 0, 0}, "ab")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if want := []byte("ababa"); !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestApply_Does_Not_Modify_Input(t *testing.T) {
	t.Parallel()

	in := []byte("level=3")
	orig := bytes.Clone(in)

	if _, err := transform.Apply(in, "key"); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if !bytes.Equal(in, orig) {
		t.Fatalf("input modified: %q", in)
	}
}

func TestApply_Rejects_Empty_Key(t *testing.T) {
	t.Parallel()

	_, err := transform.Apply([]byte("data"), "")
	if !errors.Is(err, transform.ErrInvalidKey) {
		t.Fatalf("err=%v, want ErrInvalidKey", err)
	}

	if _, err := transform.NewKeystream(""); !errors.Is(err, transform.ErrInvalidKey) {
		t.Fatalf("NewKeystream err=%v, want ErrInvalidKey", err)
	}
}

func TestKeystream_XOR_InPlace(t *testing.T) {
	t.Parallel()

	ks, err := transform.NewKeystream("secret")
	if err != nil {
		t.Fatalf("NewKeystream: %v", err)
	}

	buf := []byte("quicksave payload")
	orig := bytes.Clone(buf)

	if n := ks.XOR(buf, buf); n != len(buf) {
		t.Fatalf("n=%d, want %d", n, len(buf))
	}

	if bytes.Equal(buf, orig) {
		t.Fatal("XOR left buffer unchanged")
	}

	ks.XOR(buf, buf)

	if !bytes.Equal(buf, orig) {
		t.Fatalf("got %q, want %q", buf, orig)
	}

	if ks.Len() != len("secret") {
		t.Fatalf("Len=%d", ks.Len())
	}
}
