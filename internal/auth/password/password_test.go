package password

import "testing"

func TestHashAndMatches(t *testing.T) {
	hash, err := Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("Hash() must not return the plain text")
	}

	tests := []struct {
		name  string
		hash  string
		plain string
		want  bool
	}{
		{"correct password", hash, "correct horse", true},
		{"wrong password", hash, "battery staple", false},
		{"malformed hash", "not-a-hash", "correct horse", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.hash, tt.plain); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
