package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   int
		want int
	}{
		{in: 0, want: DefaultLimit},
		{in: -5, want: DefaultLimit},
		{in: 10, want: 10},
		{in: MaxLimit + 50, want: MaxLimit},
	}
	for _, tc := range cases {
		if got := NormalizeLimit(tc.in); got != tc.want {
			t.Errorf("NormalizeLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestCursorRoundTrip(t *testing.T) {
	t.Parallel()

	want := Cursor{CreatedAt: time.Now().UTC().Truncate(time.Microsecond), ID: uuid.New()}
	encoded := EncodeCursor(want)

	got, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if got == nil {
		t.Fatal("ParseCursor returned nil cursor")
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestParseCursorEmpty(t *testing.T) {
	t.Parallel()

	got, err := ParseCursor("   ")
	if err != nil || got != nil {
		t.Fatalf("expected nil cursor without error, got %+v, %v", got, err)
	}
}

func TestParseCursorInvalid(t *testing.T) {
	t.Parallel()

	for _, value := range []string{"!!!", "bm90LWEtY3Vyc29y"} {
		if _, err := ParseCursor(value); err == nil {
			t.Errorf("expected error for cursor %q", value)
		}
	}
}
