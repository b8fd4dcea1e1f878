package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("") is a well-known constant.
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != empty {
		t.Errorf("Sum(nil) = %s", got)
	}
	if Sum([]byte("a")) == Sum([]byte("b")) {
		t.Error("different inputs should not collide")
	}
}

func TestETagRoundTrip(t *testing.T) {
	sum := Sum([]byte("actor: alice\n"))
	for _, tag := range []string{ETag(sum), "W/" + ETag(sum), " " + ETag(sum) + " ", sum} {
		if got := FromETag(tag); got != sum {
			t.Errorf("FromETag(%q) = %q", tag, got)
		}
	}
	if FromETag("*") != "*" {
		t.Error("wildcard should pass through")
	}
}
