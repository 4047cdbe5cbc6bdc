package restyutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mu        sync.Mutex
	exchanges map[string]string
}

func (o *memoryOutput) Write(id string, contents string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.exchanges == nil {
		o.exchanges = map[string]string{}
	}
	o.exchanges[id] = contents
}

func newServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Served-By", "test")
		w.Write([]byte("<html>contract</html>"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestDump(t *testing.T) {
	server := newServer(t)

	out := &memoryOutput{}
	client := resty.New()
	Dump(client, out)

	_, err := client.R().SetHeader("User-Agent", "enricher-test").Get(server.URL + "/old")
	require.NoError(t, err)
	_, err = client.R().Get(server.URL + "/new")
	require.NoError(t, err)

	require.Len(t, out.exchanges, 2)
	first := out.exchanges["00001.txt"]
	require.Contains(t, first, "GET "+server.URL+"/old")
	require.Contains(t, first, "User-Agent: enricher-test")
	require.Contains(t, first, "200 "+server.URL+"/new")
	require.Contains(t, first, "X-Served-By: test")
	require.Contains(t, first, "<html>contract</html>")
	require.Contains(t, out.exchanges, "00002.txt")
}

func TestDumpNilOutput(t *testing.T) {
	server := newServer(t)

	client := resty.New()
	Dump(client, nil)
	res, err := client.R().Get(server.URL + "/new")
	require.NoError(t, err)
	require.Equal(t, 200, res.StatusCode())
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "http")
	out, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	out.Write("00001.txt", "exchange")
	contents, err := os.ReadFile(filepath.Join(dir, "00001.txt"))
	require.NoError(t, err)
	require.Equal(t, "exchange", string(contents))
}
