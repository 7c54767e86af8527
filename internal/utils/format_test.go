package utils

import "testing"

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		price int64
		want  string
	}{
		{12500000, "₹ 1.25 Cr"},
		{10000000, "₹ 1 Cr"},
		{15000000, "₹ 1.5 Cr"},
		{750000, "₹ 7.5 L"},
		{100000, "₹ 1 L"},
		{4550000, "₹ 45.5 L"},
		{99999, "₹ 99,999"},
		{45000, "₹ 45,000"},
		{999, "₹ 999"},
		{0, "₹ 0"},
	}
	for _, tt := range tests {
		if got := FormatPrice(tt.price); got != tt.want {
			t.Errorf("FormatPrice(%d) = %q, want %q", tt.price, got, tt.want)
		}
	}
}

func TestGroupThousands(t *testing.T) {
	tests := map[int64]string{
		0:       "0",
		12:      "12",
		1000:    "1,000",
		123456:  "123,456",
		1234567: "1,234,567",
		-98765:  "-98,765",
	}
	for n, want := range tests {
		if got := GroupThousands(n); got != want {
			t.Errorf("GroupThousands(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestOrdinal(t *testing.T) {
	tests := map[int]string{
		1:   "1st",
		2:   "2nd",
		3:   "3rd",
		4:   "4th",
		11:  "11th",
		12:  "12th",
		13:  "13th",
		21:  "21st",
		22:  "22nd",
		23:  "23rd",
		101: "101st",
		111: "111th",
		112: "112th",
	}
	for n, want := range tests {
		if got := Ordinal(n); got != want {
			t.Errorf("Ordinal(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestLabels(t *testing.T) {
	if got := FloorLabel(3); got != "3rd Floor" {
		t.Errorf("FloorLabel(3) = %q", got)
	}
	if got := AreaLabel(1200); got != "1200 sqft" {
		t.Errorf("AreaLabel(1200) = %q", got)
	}
	if got := UpperFirst("under construction"); got != "Under construction" {
		t.Errorf("UpperFirst = %q", got)
	}
	if got := UpperFirst(""); got != "" {
		t.Errorf("UpperFirst(\"\") = %q", got)
	}
}
