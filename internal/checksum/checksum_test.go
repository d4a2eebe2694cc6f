package checksum

import "testing"

func TestSumKnownVector(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Errorf("Sum = %s, want %s", got, want)
	}
}

func TestSumDeterministic(t *testing.T) {
	a := Sum([]byte("same"))
	b := Sum([]byte("same"))
	c := Sum([]byte("other"))
	if a != b {
		t.Error("identical input hashed differently")
	}
	if a == c {
		t.Error("distinct input collided")
	}
}

func TestShort(t *testing.T) {
	full := Sum([]byte("abc"))
	if got := Short([]byte("abc"), 12); got != full[:12] {
		t.Errorf("Short = %s", got)
	}
	if got := Short([]byte("abc"), 0); got != full {
		t.Errorf("Short(0) = %s, want full digest", got)
	}
	if got := Short([]byte("abc"), 1000); got != full {
		t.Errorf("Short(1000) = %s, want full digest", got)
	}
}
