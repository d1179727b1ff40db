package httpapi

import "net/http"

// Routes configures and returns the application ServeMux.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", a.handleTestPage)
	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/register", a.handleRegister)
	mux.HandleFunc("/login", a.handleLogin)
	mux.HandleFunc("/ws", a.handleWS)
	return mux
}
