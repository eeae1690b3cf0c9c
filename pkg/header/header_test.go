package header

import (
	"testing"
	"time"
)

func TestParseCacheControl(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   map[string]string
	}{
		{
			name:   "single directive",
			values: []string{"no-store"},
			want:   map[string]string{"no-store": ""},
		},
		{
			name:   "directive with argument",
			values: []string{"max-age=3600"},
			want:   map[string]string{"max-age": "3600"},
		},
		{
			name:   "multiple directives",
			values: []string{"max-age=0, must-revalidate"},
			want:   map[string]string{"max-age": "0", "must-revalidate": ""},
		},
		{
			name:   "case insensitive names",
			values: []string{"Max-Age=60, NO-CACHE"},
			want:   map[string]string{"max-age": "60", "no-cache": ""},
		},
		{
			name:   "quoted argument",
			values: []string{`no-cache="Set-Cookie"`},
			want:   map[string]string{"no-cache": "Set-Cookie"},
		},
		{
			name:   "whitespace tolerance",
			values: []string{"  max-age = 5 ,private"},
			want:   map[string]string{"max-age": "5", "private": ""},
		},
		{
			name:   "multiple header lines combine",
			values: []string{"public", "max-age=10"},
			want:   map[string]string{"public": "", "max-age": "10"},
		},
		{
			name:   "empty fields dropped",
			values: []string{", ,max-age=1,"},
			want:   map[string]string{"max-age": "1"},
		},
		{
			name:   "unknown directives preserved",
			values: []string{"x-experimental=yes"},
			want:   map[string]string{"x-experimental": "yes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCacheControl(tt.values)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseCacheControl() = %v, want %v", got, tt.want)
			}
			for name, arg := range tt.want {
				gotArg, ok := got.Get(name)
				if !ok {
					t.Errorf("missing directive %q", name)
					continue
				}
				if gotArg != arg {
					t.Errorf("directive %q = %q, want %q", name, gotArg, arg)
				}
			}
		})
	}
}

func TestDirectives_Duration(t *testing.T) {
	tests := []struct {
		name    string
		values  []string
		lookup  string
		want    time.Duration
		wantOK  bool
		present bool
	}{
		{
			name:    "valid seconds",
			values:  []string{"max-age=300"},
			lookup:  "max-age",
			want:    300 * time.Second,
			wantOK:  true,
			present: true,
		},
		{
			name:    "zero seconds",
			values:  []string{"max-age=0"},
			lookup:  "max-age",
			want:    0,
			wantOK:  true,
			present: true,
		},
		{
			name:    "non-numeric argument degrades to present-without-argument",
			values:  []string{"max-age=abc"},
			lookup:  "max-age",
			wantOK:  false,
			present: true,
		},
		{
			name:    "negative rejected",
			values:  []string{"max-age=-5"},
			lookup:  "max-age",
			wantOK:  false,
			present: true,
		},
		{
			name:    "absent directive",
			values:  []string{"no-cache"},
			lookup:  "max-age",
			wantOK:  false,
			present: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseCacheControl(tt.values)
			got, ok := d.Duration(tt.lookup)
			if ok != tt.wantOK {
				t.Fatalf("Duration() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Duration() = %v, want %v", got, tt.want)
			}
			if d.Has(tt.lookup) != tt.present {
				t.Errorf("Has() = %v, want %v", d.Has(tt.lookup), tt.present)
			}
		})
	}
}

func TestParseVary(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []string
	}{
		{
			name:   "single name",
			values: []string{"Accept-Encoding"},
			want:   []string{"Accept-Encoding"},
		},
		{
			name:   "multiple names preserve order and case",
			values: []string{"Accept-Language, Accept-Encoding"},
			want:   []string{"Accept-Language", "Accept-Encoding"},
		},
		{
			name:   "duplicates collapse case-insensitively",
			values: []string{"Accept, accept"},
			want:   []string{"Accept"},
		},
		{
			name:   "wildcard",
			values: []string{"*"},
			want:   []string{"*"},
		},
		{
			name:   "empty value",
			values: []string{""},
			want:   nil,
		},
		{
			name:   "multiple header lines",
			values: []string{"Accept", "Accept-Language"},
			want:   []string{"Accept", "Accept-Language"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseVary(tt.values)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseVary() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseVary()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseHTTPDate(t *testing.T) {
	want := time.Date(1994, time.November, 6, 8, 49, 37, 0, time.UTC)

	tests := []struct {
		name   string
		value  string
		want   time.Time
		wantOK bool
	}{
		{
			name:   "IMF-fixdate",
			value:  "Sun, 06 Nov 1994 08:49:37 GMT",
			want:   want,
			wantOK: true,
		},
		{
			name:   "obsolete RFC 850",
			value:  "Sunday, 06-Nov-94 08:49:37 GMT",
			want:   want,
			wantOK: true,
		},
		{
			name:   "obsolete asctime",
			value:  "Sun Nov  6 08:49:37 1994",
			want:   want,
			wantOK: true,
		},
		{
			name:   "garbage",
			value:  "not a date",
			wantOK: false,
		},
		{
			name:   "empty",
			value:  "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseHTTPDate(tt.value)
			if ok != tt.wantOK {
				t.Fatalf("ParseHTTPDate(%q) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParseHTTPDate(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		want   time.Duration
		wantOK bool
	}{
		{name: "simple", value: "120", want: 120 * time.Second, wantOK: true},
		{name: "zero", value: "0", want: 0, wantOK: true},
		{name: "list uses first member", value: "30, 60", want: 30 * time.Second, wantOK: true},
		{name: "negative rejected", value: "-1", wantOK: false},
		{name: "non-numeric rejected", value: "abc", wantOK: false},
		{name: "empty rejected", value: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAge(tt.value)
			if ok != tt.wantOK {
				t.Fatalf("ParseAge(%q) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseAge(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
