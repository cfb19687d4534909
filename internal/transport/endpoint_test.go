package transport

import "testing"

func TestEndpointURLDefaultsSchemeByLoopback(t *testing.T) {
	cases := []struct {
		name string
		ep   Endpoint
		want string
	}{
		{"loopback host defaults to ws", Endpoint{Host: "127.0.0.1", Port: 8080}, "ws://127.0.0.1:8080/ws/"},
		{"localhost defaults to ws", Endpoint{Host: "localhost", Port: 9000}, "ws://localhost:9000/ws/"},
		{"remote host defaults to wss", Endpoint{Host: "api.example.com", Port: 443}, "wss://api.example.com:443/ws/"},
		{"explicit scheme wins", Endpoint{Scheme: "wss", Host: "127.0.0.1", Port: 8080}, "wss://127.0.0.1:8080/ws/"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := c.ep.URL()
			if err != nil {
				t.Fatalf("URL: %v", err)
			}
			if got != c.want {
				t.Errorf("URL() = %q, want %q", got, c.want)
			}
		})
	}
}

func TestEndpointURLRejectsEmptyHost(t *testing.T) {
	_, err := Endpoint{Port: 80}.URL()
	if err == nil {
		t.Fatal("URL: want error for empty host")
	}
}
