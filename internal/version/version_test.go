package version

import "testing"

// Adjacent pairs where the left side must sort strictly before the right one.
var orderedPairs = [][2]string{
	{"0.0-1.el7.centos", "0.1-1.el7.centos"},
	{"0.1-1.el7.centos", "1.0-1.el7.centos"},
	{"1.0-1.el7.centos", "1.0-1.20170103101841.centos"},
	{"1.0-1.20170103101841.centos", "1.0-1.20180103101841.centos"},
	{"1.0-1.20180103101841.centos", "1.0-1.20180103101841.git17e7bc0.el7.centos"},
	{"1.0-1.20180103101841.git17e7bc0.el7.centos", "1.0-1.20190103101841.git17e7bc0.el7.centos"},
	{"1.0-1.20190103101841.git17e7bc0.el7.centos", "1.1-1.20190103101841.git17e7bc0.el7.centos"},
	{"1.1-1.20190103101841.git17e7bc0.el7.centos", "2.1-1.20190103101841.git17e7bc0.el7.centos"},
	{"1.9-1", "1.10-1"},
	{"9-1", "10-1"},
	{"1.0", "1.0-1"},
	{"1.0-1", "1.0.1-1"},
}

func TestCompareOrderedPairs(t *testing.T) {
	for _, pair := range orderedPairs {
		a, b := NewKey(pair[0]), NewKey(pair[1])

		if res := Compare(a, b); res != -1 {
			t.Errorf("Compare(%q, %q) = %d, want -1", pair[0], pair[1], res)
		}
		if res := Compare(b, a); res != 1 {
			t.Errorf("Compare(%q, %q) = %d, want 1", pair[1], pair[0], res)
		}
	}
}

func TestCompareEqual(t *testing.T) {
	for _, raw := range []string{"1.0-1.el7", "2.1", "1.0-1.20170103101841.centos", ""} {
		if res := Compare(NewKey(raw), NewKey(raw)); res != 0 {
			t.Errorf("Compare(%q, %q) = %d, want 0", raw, raw, res)
		}
	}
}

func TestCompareTransitive(t *testing.T) {
	chain := []string{
		"0.0-1.el7",
		"0.1-1.el7",
		"1.0-1.el7",
		"1.0-1.20170103101841.centos",
		"1.10-1.el7",
		"2.0-0.1.rc1.el7",
	}

	for i := 0; i < len(chain); i++ {
		for j := i + 1; j < len(chain); j++ {
			a, b := NewKey(chain[i]), NewKey(chain[j])
			if !Less(a, b) {
				t.Errorf("want %q < %q", chain[i], chain[j])
			}
			if Less(b, a) {
				t.Errorf("want !(%q < %q)", chain[j], chain[i])
			}
		}
	}
}

func TestCompareNumericNotLexical(t *testing.T) {
	if !Less(NewKey("1.9-1"), NewKey("1.10-1")) {
		t.Error("numeric segments must compare numerically, not lexically")
	}
}

func TestCompareMixedSegments(t *testing.T) {
	// A non-numeric segment sorts below any numeric one at the same
	// position.
	if !Less(NewKey("1.1rc-1"), NewKey("1.2-1")) {
		t.Error(`want "1rc" < "2"`)
	}
	if !Less(NewKey("1.0-1.el7"), NewKey("1.0-1.20170103101841")) {
		t.Error(`want "el7" < "20170103101841"`)
	}
	if !Less(NewKey("1.-1"), NewKey("1.0-1")) {
		t.Error("empty segment must sort before a numeric one")
	}
}

func TestCompareShorterSideIsOlder(t *testing.T) {
	if !Less(NewKey("1.0-1"), NewKey("1.0.0-1")) {
		t.Error("fewer segments must sort as older")
	}
}
