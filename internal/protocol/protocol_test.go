package protocol

import "testing"

func TestRequestRoundTrip(t *testing.T) {
	data := BuildRequest("test", 54321)
	if string(data) != "Who's test?#54321" {
		t.Fatalf("unexpected wire form: %s", data)
	}

	port, ok := ParseRequest(data, "test")
	if !ok || port != 54321 {
		t.Fatalf("expected port 54321, got %d ok=%v", port, ok)
	}
}

func TestParseRequestRejectsOtherService(t *testing.T) {
	data := BuildRequest("test", 1)
	if _, ok := ParseRequest(data, "other"); ok {
		t.Fatal("expected mismatch to be rejected")
	}
}

func TestParseRequestRejectsBadPort(t *testing.T) {
	cases := []string{"Who's test?#0", "Who's test?#-5", "Who's test?#abc", "Who's test?#70000"}
	for _, c := range cases {
		if _, ok := ParseRequest([]byte(c), "test"); ok {
			t.Fatalf("expected %q to be rejected", c)
		}
	}
}

func TestResponseRoundTripNoPort(t *testing.T) {
	data := BuildResponse("test", nil)
	if string(data) != "I'm test" {
		t.Fatalf("unexpected wire form: %s", data)
	}
	port, ok := ParseResponse(data, "test")
	if !ok || port != nil {
		t.Fatalf("expected nil port, got %v ok=%v", port, ok)
	}
}

func TestResponseRoundTripWithPort(t *testing.T) {
	p := 9001
	data := BuildResponse("test", &p)
	if string(data) != "I'm test#9001" {
		t.Fatalf("unexpected wire form: %s", data)
	}
	port, ok := ParseResponse(data, "test")
	if !ok || port == nil || *port != 9001 {
		t.Fatalf("expected port 9001, got %v ok=%v", port, ok)
	}
}

func TestParseResponseExactPrefix(t *testing.T) {
	// "I'm testing" must not match service "test" (I4: exact prefix match).
	if _, ok := ParseResponse([]byte("I'm testing"), "test"); ok {
		t.Fatal("expected prefix-only match to be rejected")
	}
}

func TestSyncRoundTrip(t *testing.T) {
	data := BuildSync("test", 0)
	if string(data) != "test.0" {
		t.Fatalf("unexpected wire form: %s", data)
	}
	token, ok := ParseSync(data, "test")
	if !ok || token != 0 {
		t.Fatalf("expected token 0, got %d ok=%v", token, ok)
	}
}

func TestParseSyncRejectsNegativeAndMalformed(t *testing.T) {
	cases := []string{"test.-1", "test.", "test", "other.5", "test.5x"}
	for _, c := range cases {
		if _, ok := ParseSync([]byte(c), "test"); ok {
			t.Fatalf("expected %q to be rejected", c)
		}
	}
}
