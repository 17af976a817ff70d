package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// echo responde com o nome do backend e o path recebido
func echo(name string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, name+" "+r.URL.Path)
	}))
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestRouter_ProxiesWithPrefixStripped(t *testing.T) {
	pool, dice := echo("pool"), echo("dice")
	defer pool.Close()
	defer dice.Close()

	h, err := NewRouter(Targets{Pool: pool.URL, Dice: dice.URL}, nil)
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	gw := httptest.NewServer(h)
	defer gw.Close()

	cases := []struct{ path, want string }{
		{"/api/pool/v1/matches", "pool /v1/matches"},
		{"/api/dice/balance", "dice /balance"},
	}
	for _, c := range cases {
		code, body := get(t, gw.URL+c.path)
		if code != http.StatusOK || body != c.want {
			t.Errorf("%s: status=%d body=%q want %q", c.path, code, body, c.want)
		}
	}

	if code, body := get(t, gw.URL+"/health"); code != http.StatusOK || body != `{"status":"ok"}` {
		t.Errorf("health: %d %q", code, body)
	}
	if code, _ := get(t, gw.URL+"/unknown"); code != http.StatusNotFound {
		t.Errorf("unknown route status=%d", code)
	}
}

func TestRouter_InvalidTarget(t *testing.T) {
	if _, err := NewRouter(Targets{Pool: "localhost:8082", Dice: "http://x"}, nil); err == nil {
		t.Fatal("expected error for url without scheme")
	}
	if _, err := NewRouter(Targets{Pool: "http://x", Dice: ""}, nil); err == nil {
		t.Fatal("expected error for empty dice url")
	}
}
