package version

import (
	"errors"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		input string
		major uint16
		minor uint16
		patch uint16
	}{
		{"1.2.3", 1, 2, 3},
		{"0.3.0", 0, 3, 0},
		{"2.1.0", 2, 1, 0},
		{" 10.23.4 ", 10, 23, 4},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if v.Major != tt.major || v.Minor != tt.minor || v.Patch != tt.patch {
				t.Errorf("Parse(%q) = %s, want %d.%d.%d", tt.input, v, tt.major, tt.minor, tt.patch)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"",
		"1",
		"1.2",
		"1.2.3.4",
		"1..3",
		"1.x.3",
		"-1.0.0",
		"1.2.",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			if err == nil {
				t.Fatalf("Parse(%q) should return error", input)
			}
			if !errors.Is(err, ErrMalformedVersion) {
				t.Errorf("Parse(%q) error = %v, want ErrMalformedVersion", input, err)
			}
		})
	}
}

func TestFirmware_String(t *testing.T) {
	v := FromBytes(2, 1, 0)
	if v.String() != "2.1.0" {
		t.Errorf("String() = %q, want %q", v.String(), "2.1.0")
	}
}

func TestFirmware_Bytes(t *testing.T) {
	b, err := MustParse("1.2.3").Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if b != [3]byte{1, 2, 3} {
		t.Errorf("Bytes() = %v, want [1 2 3]", b)
	}

	_, err = MustParse("1.200.0").Bytes()
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Bytes() error = %v, want ErrOutOfRange", err)
	}
}

func TestFirmware_Compare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.2.3", "1.2.3", 0},
		{"1.2.3", "1.2.0", 1},
		{"1.2.3", "1.3.0", -1},
		{"2.0.0", "1.9.9", 1},
		{"1.10.0", "1.9.0", 1},
		{"0.0.1", "0.0.2", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			got := MustParse(tt.a).Compare(MustParse(tt.b))
			if got != tt.want {
				t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestFirmware_AtLeast(t *testing.T) {
	fw := MustParse("1.2.3")
	if !fw.AtLeast(MustParse("1.2.0")) {
		t.Error("1.2.3 should be at least 1.2.0")
	}
	if fw.AtLeast(MustParse("1.3.0")) {
		t.Error("1.2.3 should NOT be at least 1.3.0")
	}
	if !fw.AtLeast(fw) {
		t.Error("a version should be at least itself")
	}
}
