package timefmt

import "testing"

func TestCheck(t *testing.T) {
	for _, p := range []string{"%d/%m/%Y", "%m/%d/%y", "%Y-%m-%dT%H:%M:%S%z", "%b %-d, %Y", "100%% %Y", "%d.%m.%Y %I:%M %p"} {
		if err := Check(p); err != nil {
			t.Errorf("Check(%q) returned error: %v", p, err)
		}
	}
}

func TestCheckRejectsBadPatterns(t *testing.T) {
	for _, p := range []string{"%Q", "%Y-%", "%-"} {
		if err := Check(p); err == nil {
			t.Errorf("Check(%q) expected an error", p)
		}
	}
}

func TestReformat(t *testing.T) {
	tests := []struct {
		in, out string
		value   string
		want    string
	}{
		{"%Y-%m-%dT%H:%M:%S%z", "%m/%d/%Y", "2023-10-01T14:30:00-0400", "10/01/2023"},
		{"%Y-%m-%dT%H:%M:%S%z", "%m/%d/%Y", "2023-10-01T14:30:00-04:00", "10/01/2023"},
		{"%Y-%m-%dT%H:%M:%S%z", "%m/%d/%Y", "2023-10-01T14:30:00Z", "10/01/2023"},
		{"%m/%d/%Y", "%d/%m/%Y", "1/5/2023", "05/01/2023"},
		{"%m/%d/%Y", "%d/%m/%Y", "10/1/2023", "01/10/2023"},
		{"%m/%d/%Y %I:%M %p", "%Y-%m-%d %H:%M", "1/5/2023 3:07 PM", "2023-01-05 15:07"},
		{"%b %-d, %Y", "%d/%m/%Y", "Jan 5, 2023", "05/01/2023"},
		{"%d/%m/%Y", "%-d %B %Y", " 05/01/2023 ", "5 January 2023"},
		// Letters that are Go layout tokens stay literal.
		{"Mon %d Jan %m PM %Y", "%Y-%m-%d", "Mon 05 Jan 01 PM 2023", "2023-01-05"},
	}
	for _, tt := range tests {
		c, err := NewConverter(tt.in, tt.out)
		if err != nil {
			t.Fatalf("NewConverter(%q, %q): %v", tt.in, tt.out, err)
		}
		got, err := c.Reformat(tt.value)
		if err != nil {
			t.Errorf("Reformat(%q) under %q: %v", tt.value, tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Reformat(%q) under %q = %q, want %q", tt.value, tt.in, got, tt.want)
		}
	}
}

func TestReformatInvalidDate(t *testing.T) {
	c, err := NewConverter("%m/%d/%Y", "%d/%m/%Y")
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	for _, v := range []string{"13/45/2023", "2023-10-01", "10/01/2023 extra"} {
		if _, err := c.Reformat(v); err == nil {
			t.Errorf("Reformat(%q) expected an error", v)
		}
	}
}
