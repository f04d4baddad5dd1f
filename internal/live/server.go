package live

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/san-kum/vxpsim/internal/compliance"
	"github.com/san-kum/vxpsim/internal/rotor"
	"github.com/san-kum/vxpsim/internal/session"
)

// Server exposes a session over HTTP: acquisitions are posted, results are
// streamed to the room.
type Server struct {
	mu   sync.Mutex
	sess *session.Session
	room *Room
	save func(*session.Session) error
	mux  *http.ServeMux
}

type Status struct {
	Run      int                 `json:"run"`
	MaxRuns  int                 `json:"max_runs"`
	Passed   bool                `json:"passed"`
	Regimes  []compliance.Status `json:"regimes"`
	Acquired map[string]bool     `json:"acquired"`
}

// NewServer registers room as an observer of sess. save, if not nil, is
// called after every change.
func NewServer(sess *session.Session, room *Room, save func(*session.Session) error) *Server {
	s := &Server{sess: sess, room: room, save: save, mux: http.NewServeMux()}
	sess.AddObserver(room)

	s.mux.Handle("/room", room)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/acquire", s.handleAcquire)
	s.mux.HandleFunc("/api/next-run", s.handleNextRun)
	s.mux.HandleFunc("/", s.handleIndex)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) status() Status {
	run := s.sess.Run()
	st := Status{
		Run:      run,
		MaxRuns:  s.sess.MaxRuns(),
		Passed:   s.sess.Passed(),
		Regimes:  s.sess.Evaluate(run),
		Acquired: make(map[string]bool, len(rotor.Regimes)),
	}
	for _, r := range rotor.Regimes {
		st.Acquired[r.String()] = s.sess.State(run, r) == session.Acquired
	}
	return st
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) persist() error {
	if s.save == nil {
		return nil
	}
	return s.save(s.sess)
}

// handleAcquire acquires ?regime=NAME, or every regime when none is given.
func (s *Server) handleAcquire(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("use POST"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if name := r.URL.Query().Get("regime"); name != "" {
		regime, err := rotor.ParseRegime(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.sess.Acquire(regime)
	} else if _, err := s.sess.AcquireAll(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if err := s.persist(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleNextRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("use POST"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sess.NextRun(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	if err := s.persist(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

const indexHTML = `<!doctype html>
<html><head><title>vxpsim live</title>
<style>body{background:#0a0a0a;color:#d0d0d0;font-family:monospace}</style></head>
<body>
<h3>vxpsim live</h3>
<button onclick="fetch('/api/acquire',{method:'POST'})">Acquire all</button>
<button onclick="fetch('/api/next-run',{method:'POST'})">Next run</button>
<pre id="log"></pre>
<script>
const log = document.getElementById('log');
const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/room');
ws.onmessage = (e) => {
  const ev = JSON.parse(e.data);
  const m = ev.measurement;
  log.textContent = 'run ' + ev.run + '  ' + m.regime + '  ' + m.balance.amp_ips.toFixed(3) + ' ips @ ' +
    m.balance.phase_deg.toFixed(0) + '  ' + JSON.stringify(m.track_mm) + '\n' + log.textContent;
};
</script>
</body></html>
`
