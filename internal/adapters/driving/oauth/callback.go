// Package oauth provides the local OAuth callback server and the
// browser-based authorisation code flow with PKCE.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"
)

// callbackPath is where the provider redirects the browser.
const callbackPath = "/callback"

// outcome is what one redirect delivered: a code or the reason there is none.
type outcome struct {
	code string
	err  error
}

// Receiver accepts a single OAuth redirect on the loopback interface.
// Only the first redirect counts; later ones get a page but are ignored.
type Receiver struct {
	state    string
	listener net.Listener
	server   *http.Server
	done     chan outcome
	once     sync.Once
	closed   sync.Once
}

// Listen binds 127.0.0.1:port and starts serving. Port 0 picks a free port.
// Redirects whose state differs from state are rejected.
func Listen(port int, state string) (*Receiver, error) {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for oauth callback on %s: %w", addr, err)
	}

	r := &Receiver{
		state:    state,
		listener: l,
		done:     make(chan outcome, 1),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+callbackPath, r.serveCallback)
	r.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	go func() {
		if err := r.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.settle(outcome{err: err})
		}
	}()
	return r, nil
}

// Port is the bound port.
func (r *Receiver) Port() int {
	return r.listener.Addr().(*net.TCPAddr).Port
}

// RedirectURL is the address to register as the OAuth redirect.
func (r *Receiver) RedirectURL() string {
	return "http://" + r.listener.Addr().String() + callbackPath
}

// Code blocks until a redirect arrives or ctx is done.
func (r *Receiver) Code(ctx context.Context) (string, error) {
	select {
	case o := <-r.done:
		return o.code, o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", errors.New("timeout waiting for authorization callback")
		}
		return "", ctx.Err()
	}
}

// Close stops the server. It is safe to call more than once.
func (r *Receiver) Close() error {
	var err error
	r.closed.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = r.server.Shutdown(ctx)
	})
	return err
}

func (r *Receiver) settle(o outcome) {
	r.once.Do(func() { r.done <- o })
}

func (r *Receiver) serveCallback(w http.ResponseWriter, req *http.Request) {
	o := parseRedirect(req, r.state)
	r.settle(o)

	page := resultPage{Title: "Authorization successful", Message: "You can close this window and return to the terminal."}
	if o.err != nil {
		page = resultPage{Title: "Authorization failed", Message: o.err.Error()}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = resultTemplate.Execute(w, page)
}

// parseRedirect validates the query of a provider redirect.
func parseRedirect(req *http.Request, state string) outcome {
	q := req.URL.Query()
	if e := q.Get("error"); e != "" {
		if desc := q.Get("error_description"); desc != "" {
			return outcome{err: fmt.Errorf("provider returned %s: %s", e, desc)}
		}
		return outcome{err: fmt.Errorf("provider returned %s", e)}
	}
	if q.Get("state") != state {
		return outcome{err: errors.New("state mismatch: the callback does not belong to this login")}
	}
	code := q.Get("code")
	if code == "" {
		return outcome{err: errors.New("no authorization code in callback")}
	}
	return outcome{code: code}
}

type resultPage struct {
	Title   string
	Message string
}

var resultTemplate = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>connect</title>
<style>
body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; margin: 15vh auto; max-width: 32em; text-align: center; color: #2B3445; }
p { color: #6B7280; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
</body>
</html>
`))

// browserCommand returns the program and arguments that open url on goos.
func browserCommand(goos, url string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{url}, nil
	}
	return "", nil, fmt.Errorf("no browser launcher for %s", goos)
}

// OpenBrowser opens url in the default browser without waiting for it.
func OpenBrowser(url string) error {
	name, args, err := browserCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}
	return exec.Command(name, args...).Start()
}
