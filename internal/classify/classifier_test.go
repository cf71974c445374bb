package classify

import (
	"testing"

	"intelfeed/internal/domain"
)

func allTypesDeclared() map[domain.IndicatorType]struct{} {
	declared := make(map[domain.IndicatorType]struct{}, len(domain.AllIndicatorTypes))
	for _, t := range domain.AllIndicatorTypes {
		declared[t] = struct{}{}
	}
	return declared
}

func declared(types ...domain.IndicatorType) map[domain.IndicatorType]struct{} {
	set := make(map[domain.IndicatorType]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}

func TestClassifyPrecedence(t *testing.T) {
	opts := Options{Declared: allTypesDeclared()}

	tests := []struct {
		name     string
		value    string
		wantType domain.IndicatorType
		wantHash domain.HashType
	}{
		{name: "ipv4", value: "192.0.2.10", wantType: domain.TypeIP},
		{name: "ipv6", value: "2001:db8::1", wantType: domain.TypeIP},
		{name: "cidr", value: "10.0.0.0/8", wantType: domain.TypeIP},
		{name: "md5", value: "d41d8cd98f00b204e9800998ecf8427e", wantType: domain.TypeHash, wantHash: domain.HashMD5},
		{name: "sha1", value: "da39a3ee5e6b4b0d3255bfef95601890afd80709", wantType: domain.TypeHash, wantHash: domain.HashSHA1},
		{name: "sha256", value: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", wantType: domain.TypeHash, wantHash: domain.HashSHA256},
		{name: "url", value: "https://evil.example.com/payload", wantType: domain.TypeURL},
		{name: "domain", value: "malware.example.com", wantType: domain.TypeDomain},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, ok := Classify(tc.value, opts)
			if !ok {
				t.Fatalf("Classify(%q) did not match", tc.value)
			}
			if result.Type != tc.wantType {
				t.Fatalf("Classify(%q) type = %s, want %s", tc.value, result.Type, tc.wantType)
			}
			if result.HashType != tc.wantHash {
				t.Fatalf("Classify(%q) hash type = %s, want %s", tc.value, result.HashType, tc.wantHash)
			}
		})
	}
}

func TestClassifyRejectsUnmatchedValues(t *testing.T) {
	opts := Options{Declared: allTypesDeclared()}

	for _, value := range []string{
		"not a value",
		"abcdef",
		"999.999.999.999",
		"-leadinghyphen.example.com",
	} {
		if _, ok := Classify(value, opts); ok {
			t.Fatalf("Classify(%q) matched, want rejection", value)
		}
	}
}

func TestClassifyUndeclaredTypeIsDropped(t *testing.T) {
	// An all-hex 32-char string is a hash by grammar. A source that only
	// declares domains must drop it rather than misfile it as a domain.
	opts := Options{Declared: declared(domain.TypeDomain)}

	if _, ok := Classify("d41d8cd98f00b204e9800998ecf8427e", opts); ok {
		t.Fatal("hash-shaped value matched on a domain-only source")
	}
}

func TestClassifyIPWinsOverDomain(t *testing.T) {
	opts := Options{Declared: declared(domain.TypeIP, domain.TypeDomain)}

	result, ok := Classify("192.0.2.10", opts)
	if !ok || result.Type != domain.TypeIP {
		t.Fatalf("got (%v, %v), want ip match", result, ok)
	}
}

func TestClassifySoarURL(t *testing.T) {
	t.Run("declared and enabled", func(t *testing.T) {
		opts := Options{Declared: declared(domain.TypeSoarURL), SoarEnabled: true}
		result, ok := Classify("https://soar.example.com/case/42", opts)
		if !ok || result.Type != domain.TypeSoarURL {
			t.Fatalf("got (%v, %v), want soar-url match", result, ok)
		}
	})

	t.Run("disabled falls back to url", func(t *testing.T) {
		opts := Options{Declared: declared(domain.TypeSoarURL, domain.TypeURL), SoarEnabled: false}
		result, ok := Classify("https://soar.example.com/case/42", opts)
		if !ok || result.Type != domain.TypeURL {
			t.Fatalf("got (%v, %v), want url match", result, ok)
		}
	})

	t.Run("disabled and url undeclared drops", func(t *testing.T) {
		opts := Options{Declared: declared(domain.TypeSoarURL), SoarEnabled: false}
		if _, ok := Classify("https://soar.example.com/case/42", opts); ok {
			t.Fatal("url matched on a soar-only source with soar disabled")
		}
	})
}

func TestNormalizeLine(t *testing.T) {
	tests := []struct {
		line string
		want string
		ok   bool
	}{
		{line: "192.0.2.10", want: "192.0.2.10", ok: true},
		{line: "  192.0.2.10  ", want: "192.0.2.10", ok: true},
		{line: "192.0.2.10 # campaign 7", want: "192.0.2.10", ok: true},
		{line: "192.0.2.10\tinline note", want: "192.0.2.10", ok: true},
		{line: "", ok: false},
		{line: "   ", ok: false},
		{line: "# full line comment", ok: false},
		{line: "; semicolon comment", ok: false},
		{line: "// slash comment", ok: false},
	}

	for _, tc := range tests {
		got, ok := NormalizeLine(tc.line)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("NormalizeLine(%q) = (%q, %v), want (%q, %v)", tc.line, got, ok, tc.want, tc.ok)
		}
	}
}
