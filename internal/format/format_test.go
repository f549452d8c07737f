package format

import "testing"

func TestKRW(t *testing.T) {
	cases := map[int64]string{
		0:       "₩0",
		950:     "₩950",
		132500:  "₩132,500",
		1234500: "₩1,234,500",
		-80000:  "-₩80,000",
	}
	for in, want := range cases {
		if got := KRW(in); got != want {
			t.Errorf("KRW(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestPhone(t *testing.T) {
	cases := []struct{ in, want string }{
		{"010", "010"},
		{"0101", "010-1"},
		{"0101234", "010-1234"},
		{"01012345", "010-1234-5"},
		{"010 1234 5678", "010-1234-5678"},
		{"010-1234-56789", "010-1234-56789"},
		{"010123456789", "010123456789"},
	}
	for _, tc := range cases {
		if got := Phone(tc.in); got != tc.want {
			t.Errorf("Phone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBusinessNumber(t *testing.T) {
	cases := []struct{ in, want string }{
		{"123", "123"},
		{"12345", "123-45"},
		{"123456", "123-45-6"},
		{"1234567890", "123-45-67890"},
		{"12345678901", "12345678901"},
	}
	for _, tc := range cases {
		if got := BusinessNumber(tc.in); got != tc.want {
			t.Errorf("BusinessNumber(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidators(t *testing.T) {
	if !IsEmail("owner@shop.kr") || IsEmail("owner@shop") || IsEmail("a b@c.d") {
		t.Error("IsEmail mismatch")
	}
	if !IsMobile("010-1234-5678") || !IsMobile("0111234567") || IsMobile("02-123-4567") {
		t.Error("IsMobile mismatch")
	}
	if !IsLeadPhone("010-1234-5678") || IsLeadPhone("01012345678") || IsLeadPhone("011-1234-5678") {
		t.Error("IsLeadPhone mismatch")
	}
	if !IsURL("https://naegaolryeo.kr") || !IsURL("mailto:hi@example.com") || IsURL("example.com") || IsURL("http://") {
		t.Error("IsURL mismatch")
	}
}
