package release

import "testing"

func TestParseVersion(t *testing.T) {
	tests := []struct {
		tag     string
		want    parsedVersion
		wantErr bool
	}{
		{"v5.0.0", parsedVersion{5, 0, 0}, false},
		{"5.0.0", parsedVersion{5, 0, 0}, false},
		{"v4.1", parsedVersion{4, 1, 0}, false},
		{" v4.1.0 ", parsedVersion{4, 1, 0}, false},
		{"v5", parsedVersion{5, 0, 0}, false},
		{"", parsedVersion{}, true},
		{"v", parsedVersion{}, true},
		{"v5.0.0.0", parsedVersion{}, true},
		{"vfive", parsedVersion{}, true},
		{"v5.-1.0", parsedVersion{}, true},
	}

	for _, tt := range tests {
		got, err := parseVersion(tt.tag)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseVersion(%q) error = %v, wantErr %v", tt.tag, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("parseVersion(%q) = %v, want %v", tt.tag, got, tt.want)
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"v5.0.0", "v5.0.0", 0},
		{"v5.0.0", "v4.1.0", 1},
		{"v4.1.0", "v5.0.0", -1},
		{"v4.1.1", "v4.1.0", 1},
		{"v4.2.0", "v4.10.0", -1},
	}

	for _, tt := range tests {
		va, _ := parseVersion(tt.a)
		vb, _ := parseVersion(tt.b)
		if got := va.compare(vb); got != tt.want {
			t.Errorf("compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		tag     string
		want    string
		wantErr bool
	}{
		{"v5.0.0", "v5.0.0", false},
		{"5.0.0", "v5.0.0", false},
		{"v4.1", "v4.1.0", false},
		{"v4.1.0", "v4.1.0", false},
		{"v4.0.0", "", true},
		{"v2.0.0", "", true},
		{"garbage", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizeVersion(tt.tag)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeVersion(%q) error = %v, wantErr %v", tt.tag, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeVersion(%q) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}
